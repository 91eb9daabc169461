package replenishment

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-replenishment/internal/domain"
	"github.com/jhoicas/stock-replenishment/internal/domain/repository"
	"github.com/jhoicas/stock-replenishment/pkg/logger"
	"github.com/jhoicas/stock-replenishment/pkg/tracing"
	"github.com/jhoicas/stock-replenishment/pkg/workerpool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownJob el nombre no corresponde a ningún job registrado.
var ErrUnknownJob = fmt.Errorf("%w: job desconocido", domain.ErrNotFound)

// Job trabajo periódico que se ejecuta una vez por empresa activa.
type Job interface {
	Name() string
	RunCompany(ctx context.Context, companyID string) (CompanyResult, error)
}

// JobConfig período y pool propio del job.
type JobConfig struct {
	Period    time.Duration
	Workers   int
	QueueSize int
}

// RunReport resultado de un tick: empresas procesadas, fallidas, rechazadas por cola llena
// y omitidas (pasada previa aún en curso o bloqueo no obtenido).
type RunReport struct {
	Job        string            `json:"job"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Processed  int               `json:"processed"`
	Failed     map[string]string `json:"failed,omitempty"`
	Rejected   []string          `json:"rejected,omitempty"`
	Skipped    []string          `json:"skipped,omitempty"`
	Results    []CompanyResult   `json:"results,omitempty"`
}

type collector struct {
	mu sync.Mutex
	r  RunReport
}

func (c *collector) ok(res CompanyResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.r.Processed++
	c.r.Results = append(c.r.Results, res)
}

func (c *collector) fail(companyID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.r.Failed == nil {
		c.r.Failed = make(map[string]string)
	}
	c.r.Failed[companyID] = err.Error()
}

func (c *collector) reject(companyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.r.Rejected = append(c.r.Rejected, companyID)
}

func (c *collector) skip(companyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.r.Skipped = append(c.r.Skipped, companyID)
}

func (c *collector) report(finished time.Time) RunReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.r
	r.FinishedAt = finished
	sort.Slice(r.Results, func(i, j int) bool { return r.Results[i].CompanyID < r.Results[j].CompanyID })
	sort.Strings(r.Rejected)
	sort.Strings(r.Skipped)
	return r
}

type registration struct {
	job  Job
	cfg  JobConfig
	pool *workerpool.Pool

	mu      sync.Mutex
	running map[string]bool
	last    *RunReport
}

// begin marca la empresa en ejecución; false si ya hay una pasada en curso.
func (r *registration) begin(companyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[companyID] {
		return false
	}
	r.running[companyID] = true
	return true
}

func (r *registration) end(companyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, companyID)
}

// Scheduler dispara cada job con su propio ticker y reparte las empresas activas en el pool del job.
type Scheduler struct {
	companies repository.CompanyRepository
	jobs      map[string]*registration
	order     []string
	tracer    trace.Tracer
	now       func() time.Time
	log       zerolog.Logger
}

func NewScheduler(companies repository.CompanyRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		companies: companies,
		jobs:      make(map[string]*registration),
		tracer:    tracing.Tracer("replenishment"),
		now:       time.Now,
		log:       log,
	}
}

// Register agrega un job con su configuración. Se llama antes de Start.
func (s *Scheduler) Register(job Job, cfg JobConfig) {
	pool := workerpool.New(workerpool.Config{Name: job.Name(), Workers: cfg.Workers, QueueSize: cfg.QueueSize})
	s.jobs[job.Name()] = &registration{job: job, cfg: cfg, pool: pool, running: make(map[string]bool)}
	s.order = append(s.order, job.Name())
}

// Jobs nombres registrados en orden de registro.
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.order...)
}

// Start corre los tickers hasta que ctx se cancela; luego drena los pools.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, name := range s.order {
		if p := s.jobs[name].cfg.Period; p <= 0 {
			return fmt.Errorf("job %s: período inválido %s", name, p)
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range s.order {
		reg := s.jobs[name]
		g.Go(func() error {
			ticker := time.NewTicker(reg.cfg.Period)
			defer ticker.Stop()
			s.log.Info().Str("job", name).Dur("period", reg.cfg.Period).Int("workers", reg.pool.Workers()).Msg("job programado")
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if _, err := s.Tick(gctx, name); err != nil {
						s.log.Error().Err(err).Str("job", name).Msg("tick fallido")
					}
				}
			}
		})
	}
	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := s.Shutdown(shutdownCtx); serr != nil {
		err = errors.Join(err, serr)
	}
	return err
}

// Tick una barrida: una tarea por empresa activa en el pool del job. Las tareas rechazadas por cola
// llena se informan en el reporte y se reintentan en el próximo tick.
func (s *Scheduler) Tick(ctx context.Context, name string) (RunReport, error) {
	reg, ok := s.jobs[name]
	if !ok {
		return RunReport{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	ctx, span := s.tracer.Start(ctx, "replenishment.tick", trace.WithAttributes(attribute.String("job", name)))
	defer span.End()

	col := &collector{r: RunReport{Job: name, StartedAt: s.now()}}
	ids, err := s.companies.ListActiveIDs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list companies")
		return RunReport{}, fmt.Errorf("list active companies: %w", err)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		err := reg.pool.Submit(func() {
			defer wg.Done()
			s.process(ctx, reg, id, col)
		})
		if err != nil {
			wg.Done()
			col.reject(id)
			s.log.Warn().Err(err).Str("job", name).Str("company_id", id).Msg("tarea rechazada")
		}
	}
	wg.Wait()
	return s.finish(reg, col), nil
}

// RunNow barrida síncrona sin pasar por la cola del pool (operaciones y tests).
// Respeta la omisión por empresa en ejecución y usa como máximo Workers tareas concurrentes.
func (s *Scheduler) RunNow(ctx context.Context, name string) (RunReport, error) {
	reg, ok := s.jobs[name]
	if !ok {
		return RunReport{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	ctx, span := s.tracer.Start(ctx, "replenishment.run_now", trace.WithAttributes(attribute.String("job", name)))
	defer span.End()

	col := &collector{r: RunReport{Job: name, StartedAt: s.now()}}
	ids, err := s.companies.ListActiveIDs(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("list active companies: %w", err)
	}
	var g errgroup.Group
	g.SetLimit(reg.pool.Workers())
	for _, id := range ids {
		g.Go(func() error {
			s.process(ctx, reg, id, col)
			return nil
		})
	}
	_ = g.Wait()
	return s.finish(reg, col), nil
}

// LastReport último reporte del job, si ya corrió.
func (s *Scheduler) LastReport(name string) (RunReport, bool) {
	reg, ok := s.jobs[name]
	if !ok {
		return RunReport{}, false
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.last == nil {
		return RunReport{}, false
	}
	return *reg.last, true
}

// Rejected total de tareas rechazadas por el pool del job desde el arranque.
func (s *Scheduler) Rejected(name string) int64 {
	if reg, ok := s.jobs[name]; ok {
		return reg.pool.Rejected()
	}
	return 0
}

// Shutdown deja de aceptar tareas y espera a que terminen las encoladas.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	var errs []error
	for _, name := range s.order {
		if err := s.jobs[name].pool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pool %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) process(ctx context.Context, reg *registration, companyID string, col *collector) {
	if !reg.begin(companyID) {
		col.skip(companyID)
		s.log.Debug().Str("job", reg.job.Name()).Str("company_id", companyID).Msg("pasada anterior en curso, se omite")
		return
	}
	defer reg.end(companyID)

	ctx, span := s.tracer.Start(ctx, "replenishment.company", trace.WithAttributes(
		attribute.String("job", reg.job.Name()),
		attribute.String("company_id", companyID),
	))
	defer span.End()
	log := logger.WithTrace(ctx, s.log).With().Str("job", reg.job.Name()).Str("company_id", companyID).Logger()

	// Un pánico del job cuenta como fallo de la empresa y no tumba el tick ni RunNow.
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			col.fail(companyID, err)
			log.Error().Err(err).Bytes("stack", debug.Stack()).Msg("pánico en la pasada")
		}
	}()

	res, err := reg.job.RunCompany(ctx, companyID)
	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		col.skip(companyID)
		log.Warn().Err(err).Msg("empresa bloqueada, se reintenta en el próximo tick")
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "run company")
		col.fail(companyID, err)
		log.Error().Err(err).Msg("pasada fallida")
	default:
		span.SetAttributes(attribute.Int("drafts_new", res.DraftsNew), attribute.Int("drafts_merged", res.DraftsMerged))
		col.ok(res)
		log.Debug().Int("drafts_new", res.DraftsNew).Int("drafts_merged", res.DraftsMerged).Msg("pasada completada")
	}
}

func (s *Scheduler) finish(reg *registration, col *collector) RunReport {
	report := col.report(s.now())
	reg.mu.Lock()
	reg.last = &report
	reg.mu.Unlock()
	s.log.Info().
		Str("job", report.Job).
		Int("processed", report.Processed).
		Int("failed", len(report.Failed)).
		Int("rejected", len(report.Rejected)).
		Int("skipped", len(report.Skipped)).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("tick completado")
	return report
}
