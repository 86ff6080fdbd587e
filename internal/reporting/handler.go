package reporting

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/marisol-pos/marisol/internal/platform/httpx"
	"github.com/marisol-pos/marisol/internal/shared"
)

// Handler exposes the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Monthly serves the monthly rollup. Sellers only ever see their own figures;
// supervisors may pass ?seller= to narrow the view.
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	filter := SnapshotFilter{
		Month:  month,
		Seller: r.URL.Query().Get("seller"),
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if !actor.Role.AtLeast(shared.RoleSupervisor) {
		filter.Seller = actor.Name
	}

	snapshot, err := h.service.MonthlySnapshot(r.Context(), filter)
	if err != nil {
		h.logger.Error("monthly snapshot failed", slog.Any("error", err), slog.String("month", month))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshot)
}
