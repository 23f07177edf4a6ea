package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/queue"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc runs f on the request queue behind CORS, request
// logging and the given auth middlewares.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		if s.requestQueueManager != nil {
			s.requestQueueManager.EnqueueJob(job)
		} else {
			errc <- job.Fn()
		}

		if err := <-errc; err != nil {
			s.writeError(w, r, err)
		}
	}

	middlewares := []middleware.Middleware{
		middleware.CORS(s.cors),
		middleware.Logging(s.logger),
	}

	return middleware.Chain(middleware.Chain(baseHandler, authMiddleware...), middlewares...)
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.ErrorLog != nil {
			log := s.logger.Info
			if httpErr.StatusCode >= http.StatusInternalServerError {
				log = s.logger.Error
			}
			log("request failed",
				zap.String("uri", r.URL.RequestURI()),
				zap.Int("status", httpErr.StatusCode),
				zap.Error(httpErr.ErrorLog),
			)
		}
		_ = WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message, Redirect: httpErr.Redirect})
		return
	}

	if errors.Is(err, queue.ErrQueueClosed) {
		_ = WriteJSON(w, http.StatusServiceUnavailable, ApiError{Error: "Server is shutting down"})
		return
	}

	s.logger.Error("unhandled request error", zap.String("uri", r.URL.RequestURI()), zap.Error(err))
	_ = WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
}
