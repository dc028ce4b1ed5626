package permissions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/brokerhive/portal/pkg/audit"
	"github.com/brokerhive/portal/pkg/httputil"
	"github.com/brokerhive/portal/pkg/middleware"
	"github.com/brokerhive/portal/pkg/observability"
)

// Service is the permission backend used by the HTTP handlers. Both *Store
// and *SnapshotCache satisfy it, so the cache can be dropped in front of the
// store without changing the handlers.
type Service interface {
	GetPermissions(ctx context.Context, brokerID string) (Set, error)
	SavePermissions(ctx context.Context, brokerID, actorID string, next Set, reason string) (*SaveResult, error)
	ResetToTemplate(ctx context.Context, brokerID, actorID, reason string) (Set, error)
}

// Handlers provides HTTP handlers for permission operations
type Handlers struct {
	store       *Store
	service     Service
	catalog     *Catalog
	templates   *Templates
	routes      *RouteTable
	nav         *NavTable
	auditLogger audit.Logger
	logger      *observability.Logger
}

// NewHandlers creates permission handlers. service may equal store when no
// cache is configured.
func NewHandlers(store *Store, service Service, catalog *Catalog, templates *Templates, routes *RouteTable, nav *NavTable, auditLogger audit.Logger, logger *observability.Logger) *Handlers {
	if service == nil {
		service = store
	}
	if auditLogger == nil {
		auditLogger = audit.NewNoopLogger()
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{
		store:       store,
		service:     service,
		catalog:     catalog,
		templates:   templates,
		routes:      routes,
		nav:         nav,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// RegisterRoutes registers all permission routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	// Catalog and templates
	router.HandleFunc("/api/permissions/catalog", h.GetCatalog).Methods("GET")
	router.HandleFunc("/api/permissions/templates", h.ListTemplates).Methods("GET")
	router.HandleFunc("/api/permissions/templates/{role}", h.GetTemplate).Methods("GET")

	// Cascade preview (stateless, used by the admin UI while editing)
	router.HandleFunc("/api/permissions/preview", h.PreviewToggles).Methods("POST")

	// Per-broker permission state
	router.HandleFunc("/api/brokers/{id}/permissions", h.GetBrokerPermissions).Methods("GET")
	router.HandleFunc("/api/brokers/{id}/permissions", h.SaveBrokerPermissions).Methods("PUT")
	router.HandleFunc("/api/brokers/{id}/permissions/reset", h.ResetBrokerPermissions).Methods("POST")
	router.HandleFunc("/api/brokers/{id}/permissions/audit", h.GetAuditLog).Methods("GET")

	// Access resolution
	router.HandleFunc("/api/brokers/{id}/access", h.CheckAccess).Methods("GET")
	router.HandleFunc("/api/brokers/{id}/navigation", h.GetNavigation).Methods("GET")
}

// GetCatalog returns the full permission catalog
func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.catalog.Categories(),
	})
}

// ListTemplates returns the known roles and the fallback role
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"roles":    h.templates.Roles(),
		"fallback": h.templates.Fallback(),
	})
}

// GetTemplate returns the resolved permission set for a role. Unknown roles
// resolve to the fallback template rather than an error.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	role, ok := httputil.ParsePathStringOrError(w, r, "role")
	if !ok {
		return
	}

	resolved := h.templates.Resolve(role)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"role":        role,
		"known":       h.templates.Known(role),
		"permissions": resolved,
	})
}

// toggleOp is one cascade operation in a preview request
type toggleOp struct {
	Op       string `json:"op"` // toggle, toggle_parent, toggle_child, toggle_category
	Key      Key    `json:"key,omitempty"`
	Category string `json:"category,omitempty"`
}

// PreviewToggles applies cascade operations to a submitted draft without
// persisting anything, returning the resulting state and stats
func (h *Handlers) PreviewToggles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Permissions Set        `json:"permissions"`
		Operations  []toggleOp `json:"operations"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	editor, dropped := NewEditor(h.catalog, req.Permissions)
	for i, op := range req.Operations {
		var err error
		switch op.Op {
		case "toggle":
			err = editor.Toggle(op.Key)
		case "toggle_parent":
			err = editor.ToggleParent(op.Key)
		case "toggle_child":
			err = editor.ToggleChild(op.Key)
		case "toggle_category":
			err = editor.ToggleCategory(op.Category)
		default:
			httputil.WriteBadRequest(w, fmt.Sprintf("unknown operation %q at index %d", op.Op, i))
			return
		}
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
	}

	stats := make(map[string]Stats, len(h.catalog.Categories()))
	for _, category := range h.catalog.Categories() {
		s, err := editor.CategoryStats(category.ID)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		stats[category.ID] = s
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"permissions":    editor.Snapshot(),
		"changed_keys":   editor.ChangedKeys(),
		"dropped_keys":   dropped,
		"category_stats": stats,
	})
}

// GetBrokerPermissions returns the resolved permission snapshot for a broker
// together with per-category stats
func (h *Handlers) GetBrokerPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brokerID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	broker, err := h.store.GetBroker(ctx, brokerID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	perms, err := h.service.GetPermissions(ctx, brokerID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	editor, _ := NewEditor(h.catalog, perms)
	stats := make(map[string]Stats, len(h.catalog.Categories()))
	for _, category := range h.catalog.Categories() {
		s, err := editor.CategoryStats(category.ID)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		stats[category.ID] = s
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"broker_id":      broker.ID,
		"role":           broker.Role,
		"permissions":    perms,
		"category_stats": stats,
	})
}

// SaveBrokerPermissions persists a full permission snapshot for a broker
func (h *Handlers) SaveBrokerPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brokerID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req struct {
		Permissions Set    `json:"permissions"`
		Reason      string `json:"reason,omitempty"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Permissions == nil {
		httputil.WriteBadRequest(w, "permissions are required")
		return
	}

	result, err := h.service.SavePermissions(ctx, brokerID, principal.ID, req.Permissions, req.Reason)
	if err != nil {
		if errors.Is(err, ErrUnknownKey) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.writeStoreError(w, err)
		return
	}

	if len(result.ChangedKeys) > 0 {
		h.logPermissionAudit(ctx, r, audit.EventTypePermissionUpdate, principal, brokerID, keysToStrings(result.ChangedKeys), req.Reason)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"broker_id":    brokerID,
		"changed_keys": result.ChangedKeys,
		"seeded":       result.Seeded,
	})
}

// ResetBrokerPermissions replaces a broker's snapshot with their role template
func (h *Handlers) ResetBrokerPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brokerID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	// Body is optional for resets
	_ = httputil.ParseJSON(r, &req)

	perms, err := h.service.ResetToTemplate(ctx, brokerID, principal.ID, req.Reason)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logPermissionAudit(ctx, r, audit.EventTypePermissionReset, principal, brokerID, []string{ResetAllMarker}, req.Reason)

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"broker_id":   brokerID,
		"permissions": perms,
	})
}

// GetAuditLog returns recent snapshot audit entries for a broker
func (h *Handlers) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brokerID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "limit must be an integer")
		return
	}
	entries, err := h.store.AuditLog(ctx, brokerID, limit)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"broker_id": brokerID,
		"entries":   entries,
	})
}

// CheckAccess resolves a portal path against a broker's permissions
func (h *Handlers) CheckAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brokerID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	path := httputil.ParseQueryString(r, "path", "")
	if path == "" {
		httputil.WriteBadRequest(w, "path query parameter is required")
		return
	}

	perms, err := h.service.GetPermissions(ctx, brokerID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	key, gated := h.routes.Resolve(path)
	allowed := h.routes.Allowed(perms, path)

	response := map[string]interface{}{
		"path":    path,
		"allowed": allowed,
		"gated":   gated,
	}
	if gated {
		response["key"] = key
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// GetNavigation returns sidebar visibility for every registered nav entry
func (h *Handlers) GetNavigation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brokerID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	perms, err := h.service.GetPermissions(ctx, brokerID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	visibility := make(map[string]bool, h.nav.Len())
	for _, id := range h.nav.IDs() {
		visibility[id] = h.nav.IsVisible(perms, id)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"broker_id":  brokerID,
		"navigation": visibility,
	})
}

// writeStoreError maps store errors to HTTP responses
func (h *Handlers) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBrokerNotFound) {
		httputil.WriteNotFoundError(w, "broker not found")
		return
	}
	httputil.WriteInternalError(w, err)
}

// logPermissionAudit records a permission mutation to the audit trail. Audit
// failures are logged but never fail the request.
func (h *Handlers) logPermissionAudit(ctx context.Context, r *http.Request, eventType audit.EventType, principal *middleware.Principal, brokerID string, changedKeys []string, reason string) {
	event := &audit.AuditEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Status:       audit.EventStatusSuccess,
		ActorID:      principal.ID,
		ActorName:    principal.Name,
		ResourceType: audit.ResourceTypePermission,
		ResourceID:   brokerID,
		Message:      reason,
		Metadata: map[string]interface{}{
			"changed_keys": changedKeys,
		},
	}
	audit.EnrichFromRequest(event, r)

	if err := h.auditLogger.Log(ctx, event); err != nil {
		h.logger.WithError(err).WithField("broker_id", brokerID).
			Error("Failed to write audit event")
	}
}
