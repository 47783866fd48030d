package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bcnelson/gateway-address-manager/internal/addresslist"
	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/metrics"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
	"github.com/bcnelson/gateway-address-manager/internal/validation"
)

// Syncer is told after every persisted address change.
type Syncer interface {
	TriggerSync()
}

// Precondition inspects the stored gateway before it is edited. Returning an
// error aborts the edit with that error.
type Precondition func(gw *domain.Gateway) error

// AddressService edits the address list of a stored gateway. Every edit
// goes through an addresslist.Editor whose change callback is the gateway:
// the new list is persisted, counted and scheduled for publishing.
type AddressService struct {
	store  storage.Storage
	syncer Syncer
	source string
}

// NewAddressService creates an AddressService. source labels the mutation
// metric (metrics.SourceAPI or metrics.SourceWeb). syncer may be nil.
func NewAddressService(store storage.Storage, syncer Syncer, source string) *AddressService {
	return &AddressService{store: store, syncer: syncer, source: source}
}

// AddAddress appends a default entry to the gateway's list.
func (s *AddressService) AddAddress(ctx context.Context, namespace, name string, pre Precondition) (*domain.Gateway, error) {
	return s.edit(ctx, namespace, name, metrics.OpAdd, pre, func(ed *addresslist.Editor) error {
		ed.Add()
		return nil
	})
}

// UpdateAddress replaces the entry at index.
func (s *AddressService) UpdateAddress(ctx context.Context, namespace, name string, index int, entry domain.Address, pre Precondition) (*domain.Gateway, error) {
	if err := validation.ValidateAddressType(entry.Type); err != nil {
		var errs validation.ValidationErrors
		errs.Add("type", string(entry.Type), err.Error())
		return nil, errs
	}
	return s.edit(ctx, namespace, name, metrics.OpUpdate, pre, func(ed *addresslist.Editor) error {
		if !ed.InRange(index) {
			return indexError(index, ed.Len())
		}
		ed.Update(index, entry)
		return nil
	})
}

// RemoveAddress deletes the entry at index. Later entries move down by one.
func (s *AddressService) RemoveAddress(ctx context.Context, namespace, name string, index int, pre Precondition) (*domain.Gateway, error) {
	return s.edit(ctx, namespace, name, metrics.OpRemove, pre, func(ed *addresslist.Editor) error {
		if !ed.InRange(index) {
			return indexError(index, ed.Len())
		}
		ed.Remove(index)
		return nil
	})
}

// ReplaceAddresses stores list as the gateway's complete address list. It is
// how a finished web form draft is saved.
func (s *AddressService) ReplaceAddresses(ctx context.Context, namespace, name string, list domain.AddressList, pre Precondition) (*domain.Gateway, error) {
	if errs := validation.ValidateAddresses("addresses", list); errs.HasErrors() {
		return nil, errs
	}

	gw, err := s.load(ctx, namespace, name, pre)
	if err != nil {
		return nil, err
	}
	gw.Addresses = list.Clone()
	if err := s.persist(ctx, gw, metrics.OpReplace); err != nil {
		return nil, err
	}
	return gw, nil
}

func (s *AddressService) load(ctx context.Context, namespace, name string, pre Precondition) (*domain.Gateway, error) {
	gw, err := s.store.GetGateway(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	if pre != nil {
		if err := pre(gw); err != nil {
			return nil, err
		}
	}
	return gw, nil
}

// edit runs fn against an editor seeded with the stored list. The editor's
// change callback persists the list it is handed; fn returning an error means
// no mutation happened.
func (s *AddressService) edit(ctx context.Context, namespace, name, op string, pre Precondition, fn func(*addresslist.Editor) error) (*domain.Gateway, error) {
	gw, err := s.load(ctx, namespace, name, pre)
	if err != nil {
		return nil, err
	}

	var persistErr error
	ed := addresslist.New(gw.Addresses, func(list domain.AddressList) {
		gw.Addresses = list
		persistErr = s.persist(ctx, gw, op)
	})
	if err := fn(ed); err != nil {
		return nil, err
	}
	if persistErr != nil {
		return nil, persistErr
	}
	return gw, nil
}

func (s *AddressService) persist(ctx context.Context, gw *domain.Gateway, op string) error {
	if err := s.store.UpdateGateway(ctx, gw); err != nil {
		return fmt.Errorf("saving addresses of %s/%s: %w", gw.Namespace, gw.Name, err)
	}
	metrics.AddressMutation(op, s.source)
	log.WithFields(logrus.Fields{
		"gateway": gw.Namespace + "/" + gw.Name,
		"op":      op,
		"source":  s.source,
		"count":   len(gw.Addresses),
	}).Debug("address list changed")

	if s.syncer != nil {
		s.syncer.TriggerSync()
	}
	return nil
}

func indexError(index, length int) error {
	return fmt.Errorf("%w: index %d, list has %d entries", domain.ErrIndexOutOfRange, index, length)
}
