// Package api exposes the conversion pipeline over HTTP. Handlers never
// block on codec work: a batch runs in its own goroutine and a monitor
// drains its event channel into the job record the status endpoint
// reads.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"batchconv/internal/config"
	"batchconv/internal/format"
	"batchconv/internal/queue"
	"batchconv/internal/store"
	"batchconv/internal/worker"
)

type Server struct {
	Router *gin.Engine
	cfg    *config.Config
	store  *store.Store
	queue  *queue.Queue
	runner *worker.Runner

	jobsMu sync.Mutex
	jobs   map[string]*Job
}

// Job is the foreground view of one conversion batch.
type Job struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"` // running/done
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at,omitempty"`
	Done      int            `json:"done"`
	Total     int            `json:"total"`
	Result    *worker.Result `json:"result,omitempty"`
}

func NewServer(cfg *config.Config, st *store.Store, q *queue.Queue, r *worker.Runner) *Server {
	g := gin.Default()
	s := &Server{Router: g, cfg: cfg, store: st, queue: q, runner: r, jobs: map[string]*Job{}}

	api := g.Group("/api")
	api.GET("/formats", s.listFormats)
	api.GET("/queue", s.listQueue)
	api.POST("/queue", s.addToQueue)
	api.POST("/queue/remove", s.removeFromQueue)
	api.POST("/queue/clear", s.clearQueue)
	api.POST("/convert", s.startConvert)
	api.GET("/batches/:id", s.batchStatus)
	api.GET("/artifacts", s.listArtifacts)
	api.POST("/move", s.moveArtifacts)
	api.GET("/history", s.listHistory)
	api.GET("/history/:id/items", s.listHistoryItems)
	api.GET("/stats", s.getStats)

	return s
}

func (s *Server) listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formats": format.OutputFormats})
}

func (s *Server) listQueue(c *gin.Context) {
	paths := s.queue.List()
	c.JSON(http.StatusOK, gin.H{"paths": paths, "total": len(paths)})
}

func (s *Server) addToQueue(c *gin.Context) {
	var req struct {
		Paths []string `json:"paths" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added := s.queue.Add(req.Paths)
	c.JSON(http.StatusOK, gin.H{"added": added, "total": s.queue.Len()})
}

func (s *Server) removeFromQueue(c *gin.Context) {
	var req struct {
		Indices []int `json:"indices" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.queue.Remove(req.Indices)
	c.JSON(http.StatusOK, gin.H{"total": s.queue.Len()})
}

func (s *Server) clearQueue(c *gin.Context) {
	s.queue.Clear()
	c.JSON(http.StatusOK, gin.H{"total": 0})
}

type convertRequest struct {
	Format       string  `json:"format"`
	Quality      *int    `json:"quality"`
	KeepMetadata *bool   `json:"keep_metadata"`
	Suffix       *string `json:"suffix"`
	OutputDir    string  `json:"output_dir"`
}

// options fills unset request fields from the configured defaults.
func (s *Server) options(req convertRequest) worker.Options {
	opts := worker.Options{
		FormatName:   req.Format,
		Quality:      s.cfg.Quality,
		KeepMetadata: s.cfg.KeepMetadata,
		Suffix:       s.cfg.Suffix,
		OutputDir:    req.OutputDir,
	}
	if opts.FormatName == "" {
		opts.FormatName = s.cfg.Format
	}
	if opts.OutputDir == "" {
		opts.OutputDir = s.cfg.OutputDir
	}
	if req.Quality != nil {
		opts.Quality = *req.Quality
	}
	if req.KeepMetadata != nil {
		opts.KeepMetadata = *req.KeepMetadata
	}
	if req.Suffix != nil {
		opts.Suffix = *req.Suffix
	}
	return opts
}

func (s *Server) startConvert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot := s.queue.List()
	id, events, err := s.runner.Start(snapshot, s.options(req))
	if err != nil {
		if errors.Is(err, worker.ErrBatchInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, format.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	job := &Job{ID: id, Status: "running", StartedAt: time.Now(), Total: len(snapshot)}
	s.jobsMu.Lock()
	s.jobs[id] = job
	s.jobsMu.Unlock()

	go s.monitor(job, events)

	c.JSON(http.StatusOK, gin.H{"batch_id": id, "total": len(snapshot)})
}

func (s *Server) monitor(job *Job, events <-chan worker.Event) {
	for ev := range events {
		s.jobsMu.Lock()
		if ev.Result != nil {
			job.Status = "done"
			job.Result = ev.Result
			job.EndedAt = time.Now()
		} else {
			job.Done = ev.Progress.Done
			job.Total = ev.Progress.Total
		}
		s.jobsMu.Unlock()
	}
}

func (s *Server) batchStatus(c *gin.Context) {
	id := c.Param("id")
	s.jobsMu.Lock()
	job, ok := s.jobs[id]
	var view Job
	if ok {
		view = *job
	}
	s.jobsMu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) listArtifacts(c *gin.Context) {
	arts := s.runner.Artifacts()
	c.JSON(http.StatusOK, gin.H{"artifacts": arts, "total": len(arts)})
}

func (s *Server) moveArtifacts(c *gin.Context) {
	var req struct {
		Destination string `json:"destination" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moved, err := s.runner.MoveArtifacts(req.Destination)
	if err != nil {
		if errors.Is(err, worker.ErrBatchInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"moved":       moved,
		"remaining":   len(s.runner.Artifacts()),
		"destination": req.Destination,
	})
}

func (s *Server) listHistory(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 50)
	rows, err := s.store.ListBatches(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) listHistoryItems(c *gin.Context) {
	rows, err := s.store.ListItems(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getStats(c *gin.Context) {
	st, err := s.store.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history":   st,
		"queue_len": s.queue.Len(),
		"busy":      s.runner.Busy(),
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
