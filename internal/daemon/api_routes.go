package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"scenecast/internal/api"
	"scenecast/internal/logging"
	"scenecast/internal/queue"
)

const maxSubmitBody = 64 << 10

// httpError carries the status code a handler failure maps to.
type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func fail(code int, format string, args ...any) error {
	return &httpError{code: code, msg: fmt.Sprintf(format, args...)}
}

// reply is a successful response; a nil body sends only the status.
type reply struct {
	code int
	body any
}

type jsonHandler func(r *http.Request) (reply, error)

// Router builds the job API routes.
func (s *apiServer) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Get("/api/status", s.serve(s.daemonStatus))
	r.Route("/api/jobs", func(r chi.Router) {
		r.Get("/", s.serve(s.listJobs))
		r.Post("/", s.serve(s.submitJob))
		r.Get("/{id}", s.serve(s.getJob))
		r.Delete("/{id}", s.serve(s.removeJob))
		r.Post("/{id}/retry", s.serve(s.retryJob))
	})
	return r
}

// serve runs h and writes its reply or error as JSON. Errors that are not
// httpErrors become 500s.
func (s *apiServer) serve(h jsonHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := h(r)
		if err != nil {
			var he *httpError
			if !errors.As(err, &he) {
				he = &httpError{code: http.StatusInternalServerError, msg: err.Error()}
			}
			out = reply{code: he.code, body: api.ErrorResponse{Error: he.msg}}
		}
		if out.body == nil {
			w.WriteHeader(out.code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(out.code)
		if err := json.NewEncoder(w).Encode(out.body); err != nil {
			s.logger.Warn("write api response", logging.Error(err), logging.String("path", r.URL.Path))
		}
	}
}

func (s *apiServer) daemonStatus(r *http.Request) (reply, error) {
	st := s.status.Status(r.Context())
	out := api.DaemonStatus{
		Running:      st.Running,
		PID:          st.PID,
		QueueDBPath:  st.QueueDBPath,
		LockFilePath: st.LockFilePath,
		Workflow:     api.FromStatusSummary(st.Workflow),
		Dependencies: make([]api.DependencyStatus, 0, len(st.Dependencies)),
	}
	for _, dep := range st.Dependencies {
		out.Dependencies = append(out.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return reply{http.StatusOK, out}, nil
}

// listJobs accepts repeated or comma-separated ?status= filters.
func (s *apiServer) listJobs(r *http.Request) (reply, error) {
	var statuses []queue.Status
	for _, raw := range strings.Split(strings.Join(r.URL.Query()["status"], ","), ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return reply{}, fail(http.StatusBadRequest, "unknown status %q", raw)
		}
		statuses = append(statuses, status)
	}
	items, err := s.queueSvc.List(r.Context(), statuses...)
	if err != nil {
		return reply{}, err
	}
	if items == nil {
		items = []api.QueueItem{}
	}
	return reply{http.StatusOK, api.QueueListResponse{Items: items}}, nil
}

func (s *apiServer) submitJob(r *http.Request) (reply, error) {
	var req api.SubmitJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxSubmitBody)).Decode(&req); err != nil {
		return reply{}, fail(http.StatusBadRequest, "invalid request body")
	}
	item, err := s.queueSvc.Submit(r.Context(), req)
	switch {
	case errors.Is(err, api.ErrInvalidRequest):
		return reply{}, fail(http.StatusBadRequest, "%s", err)
	case err != nil:
		return reply{}, err
	}
	s.logger.Info("job submitted",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("topic", item.Topic),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	return reply{http.StatusCreated, api.QueueItemResponse{Item: item}}, nil
}

func (s *apiServer) getJob(r *http.Request) (reply, error) {
	id, err := jobID(r)
	if err != nil {
		return reply{}, err
	}
	item, err := s.queueSvc.Describe(r.Context(), id)
	if err != nil {
		return reply{}, err
	}
	if item == nil {
		return reply{}, fail(http.StatusNotFound, "job not found")
	}
	return reply{http.StatusOK, api.QueueItemResponse{Item: *item}}, nil
}

func (s *apiServer) retryJob(r *http.Request) (reply, error) {
	id, err := jobID(r)
	if err != nil {
		return reply{}, err
	}
	result, err := api.RetryItemsByID(r.Context(), s.queueSvc, []int64{id})
	if err != nil {
		return reply{}, err
	}
	switch outcome := result.Items[0]; outcome.Outcome {
	case api.RetryItemNotFound:
		return reply{}, fail(http.StatusNotFound, "job not found")
	case api.RetryItemNotFailed:
		return reply{}, fail(http.StatusConflict, "job is not failed or in review")
	default:
		return reply{http.StatusOK, outcome}, nil
	}
}

func (s *apiServer) removeJob(r *http.Request) (reply, error) {
	id, err := jobID(r)
	if err != nil {
		return reply{}, err
	}
	result, err := api.RemoveItemsByID(r.Context(), s.queueSvc, []int64{id})
	if err != nil {
		return reply{}, err
	}
	switch result.Items[0].Outcome {
	case api.RemoveItemNotFound:
		return reply{}, fail(http.StatusNotFound, "job not found")
	case api.RemoveItemInProgress:
		return reply{}, fail(http.StatusConflict, "job is being processed")
	default:
		return reply{code: http.StatusNoContent}, nil
	}
}

func jobID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fail(http.StatusBadRequest, "invalid job id")
	}
	return id, nil
}
