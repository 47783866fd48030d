package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bcnelson/gateway-address-manager/internal/addresslist"
	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/metrics"
	"github.com/bcnelson/gateway-address-manager/internal/validation"
)

// FieldMeta describes a form field.
type FieldMeta struct {
	Name              string
	Label             string
	Required          bool
	Help              string
	Placeholder       string
	ValidationPattern string // HTML5 pattern attribute for client-side validation
	ValidationMessage string
}

const labelPattern = `^[a-z0-9]([a-z0-9\-]*[a-z0-9])?$`

var gatewayFields = []FieldMeta{
	{Name: "namespace", Label: "Namespace", Required: true, Placeholder: "default",
		ValidationPattern: labelPattern,
		ValidationMessage: "Lowercase letters, numbers and hyphens, starting and ending with a letter or number"},
	{Name: "name", Label: "Name", Required: true, Placeholder: "ingress",
		ValidationPattern: labelPattern,
		ValidationMessage: "Lowercase letters, numbers and hyphens, starting and ending with a letter or number"},
	{Name: "gatewayClassName", Label: "Gateway Class", Help: "Optional", Placeholder: "tailscale",
		ValidationPattern: labelPattern,
		ValidationMessage: "Lowercase letters, numbers and hyphens"},
}

// GatewaysListData holds data for the gateways list page.
type GatewaysListData struct {
	Namespaces []*domain.Namespace
	Namespace  string // active filter, empty for all
	Gateways   []*domain.Gateway
}

// handleGatewaysList renders the gateways list page.
func (s *Server) handleGatewaysList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ns := r.URL.Query().Get("namespace")

	namespaces, err := s.store.ListNamespaces(ctx)
	if err != nil {
		s.renderError(w, "Failed to load namespaces", http.StatusInternalServerError)
		return
	}

	var gateways []*domain.Gateway
	if ns != "" {
		gateways, err = s.store.ListGateways(ctx, ns)
	} else {
		gateways, err = s.store.ListAllGateways(ctx)
	}
	if err != nil {
		s.renderError(w, "Failed to load gateways", http.StatusInternalServerError)
		return
	}

	s.render(w, "base", "gateways", s.page(r, "Gateways", "gateways", GatewaysListData{
		Namespaces: namespaces,
		Namespace:  ns,
		Gateways:   gateways,
	}))
}

// GatewayFormData holds data for the new gateway form.
type GatewayFormData struct {
	Fields []FieldMeta
	Values map[string]string
	Errors map[string]string
}

// handleGatewayForm renders the new gateway form.
func (s *Server) handleGatewayForm(w http.ResponseWriter, r *http.Request) {
	s.renderFragment(w, "gateway_form", GatewayFormData{
		Fields: gatewayFields,
		Values: map[string]string{"namespace": r.URL.Query().Get("namespace")},
	})
}

// handleGatewayCreate creates a gateway with an empty address list and opens
// it for editing.
func (s *Server) handleGatewayCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	req := domain.CreateGatewayRequest{
		Namespace:        strings.TrimSpace(r.FormValue("namespace")),
		Name:             strings.TrimSpace(r.FormValue("name")),
		GatewayClassName: strings.TrimSpace(r.FormValue("gatewayClassName")),
	}
	values := map[string]string{
		"namespace":        req.Namespace,
		"name":             req.Name,
		"gatewayClassName": req.GatewayClassName,
	}

	if errs := validation.ValidateCreateGateway(&req); errs.HasErrors() {
		s.renderFragment(w, "gateway_form", GatewayFormData{Fields: gatewayFields, Values: values, Errors: errs.ByField()})
		return
	}

	now := time.Now()
	gw := &domain.Gateway{
		ID:               uuid.New().String(),
		Namespace:        req.Namespace,
		Name:             req.Name,
		GatewayClassName: req.GatewayClassName,
		Addresses:        domain.AddressList{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreateGateway(r.Context(), gw); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.renderFragment(w, "gateway_form", GatewayFormData{
				Fields: gatewayFields,
				Values: values,
				Errors: map[string]string{"name": "A gateway with this name already exists in the namespace"},
			})
			return
		}
		s.renderError(w, "Failed to create gateway", http.StatusInternalServerError)
		return
	}

	s.syncService.TriggerSync()
	hxRedirect(w, gatewayPath(gw.Namespace, gw.Name))
}

// GatewayEditData holds data for the gateway edit page.
type GatewayEditData struct {
	Gateway *domain.Gateway
	List    AddressListData
}

// AddressListData drives the address list table fragment.
type AddressListData struct {
	DraftID string
	View    addresslist.View
	Types   []domain.AddressType
	Dirty   bool
	Error   string
}

func addressListData(d *Draft, errMsg string) AddressListData {
	return AddressListData{
		DraftID: d.ID,
		View:    addresslist.New(d.Addresses, nil).View(),
		Types:   domain.AddressTypes,
		Dirty:   d.Dirty,
		Error:   errMsg,
	}
}

// handleGatewayEdit opens a fresh form draft of the gateway and renders the
// edit page around it.
func (s *Server) handleGatewayEdit(w http.ResponseWriter, r *http.Request) {
	gw, err := s.store.GetGateway(r.Context(), chi.URLParam(r, "namespace"), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.renderError(w, "Gateway not found", http.StatusNotFound)
			return
		}
		s.renderError(w, "Failed to load gateway", http.StatusInternalServerError)
		return
	}

	draft := s.drafts.Open(getSession(r.Context()).ID, gw)

	data := s.page(r, gw.Namespace+"/"+gw.Name, "gateways", GatewayEditData{
		Gateway: gw,
		List:    addressListData(draft, ""),
	})
	if r.URL.Query().Get("saved") != "" {
		data.Flash = &FlashMessage{Type: "success", Message: "Addresses saved"}
	}
	s.render(w, "base", "gateway_edit", data)
}

// handleGatewayDelete deletes a gateway.
func (s *Server) handleGatewayDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGateway(r.Context(), chi.URLParam(r, "namespace"), chi.URLParam(r, "name")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.renderError(w, "Gateway not found", http.StatusNotFound)
			return
		}
		s.renderError(w, "Failed to delete gateway", http.StatusInternalServerError)
		return
	}

	s.syncService.TriggerSync()
	hxRedirect(w, "/gateways")
}

// editDraft applies one list editor operation to a draft and re-renders the
// address table. The editor's change callback is the draft itself.
func (s *Server) editDraft(w http.ResponseWriter, r *http.Request, op string, apply func(ed *addresslist.Editor) error) {
	session := getSession(r.Context())
	draft, err := s.drafts.Edit(chi.URLParam(r, "draft"), session.ID, func(d *Draft) error {
		ed := addresslist.New(d.Addresses, func(list domain.AddressList) {
			d.Addresses = list
			d.Dirty = true
			metrics.AddressMutation(op, metrics.SourceWeb)
		})
		return apply(ed)
	})
	if err != nil {
		s.renderDraftError(w, r, err)
		return
	}

	s.renderPartial(w, "address_list", addressListData(draft, ""))
}

func (s *Server) renderDraftError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrDraftExpired):
		s.renderError(w, "This form has expired. Reload the page to edit the gateway again.", http.StatusGone)
	case errors.Is(err, domain.ErrIndexOutOfRange):
		s.renderError(w, "That address no longer exists. Reload the page.", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput):
		// Keep the user's form; show the problem above the table.
		draft, getErr := s.drafts.Get(chi.URLParam(r, "draft"), getSession(r.Context()).ID)
		if getErr != nil {
			s.renderDraftError(w, r, getErr)
			return
		}
		s.renderPartial(w, "address_list", addressListData(draft, err.Error()))
	default:
		log.WithError(err).Error("draft edit failed")
		s.renderError(w, "Failed to update the form", http.StatusInternalServerError)
	}
}

// handleDraftAdd appends a default address row.
func (s *Server) handleDraftAdd(w http.ResponseWriter, r *http.Request) {
	s.editDraft(w, r, metrics.OpAdd, func(ed *addresslist.Editor) error {
		ed.Add()
		return nil
	})
}

// handleDraftUpdate replaces one row with the submitted type and value.
func (s *Server) handleDraftUpdate(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.renderError(w, "Invalid address index", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	addrType, typeErr := domain.ParseAddressType(r.FormValue("type"))
	entry := domain.Address{Type: addrType, Value: strings.TrimSpace(r.FormValue("value"))}

	s.editDraft(w, r, metrics.OpUpdate, func(ed *addresslist.Editor) error {
		if !ed.InRange(index) {
			return domain.ErrIndexOutOfRange
		}
		if typeErr != nil {
			return typeErr
		}
		row := ed.Rows()[index]
		row.OnChange(entry, row.Index)
		return nil
	})
}

// handleDraftRemove deletes one row. Rows below it move up.
func (s *Server) handleDraftRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.renderError(w, "Invalid address index", http.StatusBadRequest)
		return
	}

	s.editDraft(w, r, metrics.OpRemove, func(ed *addresslist.Editor) error {
		if !ed.InRange(index) {
			return domain.ErrIndexOutOfRange
		}
		row := ed.Rows()[index]
		row.OnRemove(row.Index)
		return nil
	})
}

// handleDraftSave stores the draft's list on the gateway. The save is refused
// when the gateway changed since the draft was opened.
func (s *Server) handleDraftSave(w http.ResponseWriter, r *http.Request) {
	draft, err := s.drafts.Get(chi.URLParam(r, "draft"), getSession(r.Context()).ID)
	if err != nil {
		s.renderDraftError(w, r, err)
		return
	}

	unchanged := func(gw *domain.Gateway) error {
		if gw.ID != draft.GatewayID || !gw.UpdatedAt.Equal(draft.BaseUpdatedAt) {
			return domain.ErrPreconditionFailed
		}
		return nil
	}

	_, err = s.addresses.ReplaceAddresses(r.Context(), draft.Namespace, draft.Name, draft.Addresses, unchanged)
	if err != nil {
		var verrs validation.ValidationErrors
		switch {
		case errors.Is(err, domain.ErrPreconditionFailed):
			s.renderError(w, "The gateway was changed elsewhere since this form was opened. Reload to start over.", http.StatusConflict)
		case errors.Is(err, domain.ErrNotFound):
			s.renderError(w, "Gateway not found", http.StatusNotFound)
		case errors.As(err, &verrs):
			s.renderError(w, verrs.Error(), http.StatusBadRequest)
		default:
			log.WithError(err).Error("saving draft failed")
			s.renderError(w, "Failed to save addresses", http.StatusInternalServerError)
		}
		return
	}

	s.drafts.Discard(draft.ID)
	hxRedirect(w, gatewayPath(draft.Namespace, draft.Name)+"?saved=1")
}

// handleDraftDiscard drops the draft without saving.
func (s *Server) handleDraftDiscard(w http.ResponseWriter, r *http.Request) {
	draft, err := s.drafts.Get(chi.URLParam(r, "draft"), getSession(r.Context()).ID)
	if err == nil {
		s.drafts.Discard(draft.ID)
	}
	hxRedirect(w, "/gateways")
}

func gatewayPath(namespace, name string) string {
	return "/gateways/" + url.PathEscape(namespace) + "/" + url.PathEscape(name)
}
