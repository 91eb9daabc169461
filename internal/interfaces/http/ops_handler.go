package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-replenishment/internal/application/dto"
	"github.com/jhoicas/stock-replenishment/internal/application/replenishment"
)

// JobRunner lo implementa *replenishment.Scheduler.
type JobRunner interface {
	Jobs() []string
	RunNow(ctx context.Context, name string) (replenishment.RunReport, error)
	LastReport(name string) (replenishment.RunReport, bool)
	Rejected(name string) int64
}

// OpsHandler "ejecutar ahora" y último reporte de los jobs de reposición.
type OpsHandler struct {
	jobs JobRunner
}

func NewOpsHandler(jobs JobRunner) *OpsHandler {
	return &OpsHandler{jobs: jobs}
}

type jobStatus struct {
	Name       string                   `json:"name"`
	Rejected   int64                    `json:"rejected_total"`
	LastReport *replenishment.RunReport `json:"last_report,omitempty"`
}

// List GET /api/ops/jobs
func (h *OpsHandler) List(c *fiber.Ctx) error {
	out := make([]jobStatus, 0)
	for _, name := range h.jobs.Jobs() {
		st := jobStatus{Name: name, Rejected: h.jobs.Rejected(name)}
		if r, ok := h.jobs.LastReport(name); ok {
			st.LastReport = &r
		}
		out = append(out, st)
	}
	return c.JSON(out)
}

// Run POST /api/ops/jobs/:job/run  barrida síncrona de todas las empresas activas.
func (h *OpsHandler) Run(c *fiber.Ctx) error {
	report, err := h.jobs.RunNow(c.UserContext(), c.Params("job"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

// Report GET /api/ops/jobs/:job/report
func (h *OpsHandler) Report(c *fiber.Ctx) error {
	name := c.Params("job")
	report, ok := h.jobs.LastReport(name)
	if !ok {
		if !h.known(name) {
			return writeError(c, fmt.Errorf("%w: %s", replenishment.ErrUnknownJob, name))
		}
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NO_REPORT", Message: "el job aún no corrió"})
	}
	return c.JSON(report)
}

func (h *OpsHandler) known(name string) bool {
	for _, j := range h.jobs.Jobs() {
		if j == name {
			return true
		}
	}
	return false
}
