package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"kmeansviz/internal/render"
	"kmeansviz/kmeans"
)

var errNoManualCentroids = errors.New("no centroids provided for manual initialization")

type clusterRequest struct {
	Data       []kmeans.Point `json:"data"`
	InitMethod string         `json:"init_method"`
	NClusters  int            `json:"n_clusters"`
	Centroids  []kmeans.Point `json:"centroids,omitempty"`
	NInit      int            `json:"n_init,omitempty"`
}

type sessionResponse struct {
	ID string `json:"id"`
	kmeans.Snapshot
	InitMethod      kmeans.InitMethod `json:"init_method"`
	NClusters       int               `json:"n_clusters"`
	ManualCentroids []kmeans.Point    `json:"manual_centroids"`
}

// decodeClusterRequest writes a 400 and returns false when the body is
// unusable. The full-clustering endpoint needs manual centroids up front;
// sessions can collect them later.
func (s *Server) decodeClusterRequest(w http.ResponseWriter, r *http.Request, needCentroids bool) (clusterRequest, kmeans.InitMethod, bool) {
	var req clusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return req, 0, false
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, kmeans.ErrNoData)
		return req, 0, false
	}
	if len(req.Data) > s.cfg.Data.MaxPoints {
		writeError(w, http.StatusBadRequest, fmt.Errorf("at most %d points are accepted", s.cfg.Data.MaxPoints))
		return req, 0, false
	}
	method, err := kmeans.ParseInitMethod(req.InitMethod)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, 0, false
	}
	if method == kmeans.Manual && len(req.Centroids) == 0 && needCentroids {
		writeError(w, http.StatusBadRequest, errNoManualCentroids)
		return req, 0, false
	}
	return req, method, true
}

func (s *Server) handleKMeans(w http.ResponseWriter, r *http.Request) {
	req, method, ok := s.decodeClusterRequest(w, r, true)
	if !ok {
		return
	}
	nInit := req.NInit
	if nInit == 0 {
		nInit = s.cfg.Clustering.NInit
	}

	res, err := kmeans.Fit(req.Data, kmeans.Request{
		Method:    method,
		K:         req.NClusters,
		Centroids: req.Centroids,
		NInit:     nInit,
	}, s.engineOptions()...)
	if err != nil {
		s.logger.Warn("kmeans %s k=%d: %v", method, req.NClusters, err)
		writeError(w, engineStatus(err), err)
		return
	}
	s.logger.Info("kmeans %s k=%d on %d points: inertia %.6f after %d steps",
		method, len(res.Centroids), len(req.Data), res.Inertia, res.Steps)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req, method, ok := s.decodeClusterRequest(w, r, false)
	if !ok {
		return
	}
	k := req.NClusters
	if method == kmeans.Manual && k == 0 {
		k = len(req.Centroids)
	}
	session, err := kmeans.NewSession(req.Data, k, method, s.engineOptions()...)
	if err != nil {
		writeError(w, engineStatus(err), err)
		return
	}
	session.SetManualCentroids(req.Centroids)

	id, err := s.store.Create(session)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.logger.Info("session %s created: %s k=%d, %d points", id, method, k, len(req.Data))
	writeJSON(w, http.StatusCreated, newSessionResponse(id, session))
}

func newSessionResponse(id string, session *kmeans.Session) sessionResponse {
	return sessionResponse{
		ID:              id,
		Snapshot:        session.Snapshot(),
		InitMethod:      session.Method(),
		NClusters:       session.K(),
		ManualCentroids: session.ManualCentroids(),
	}
}

// withSession runs fn on the session named in the path and writes the
// resulting session state, or the error fn returned.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*kmeans.Session) error) {
	id := r.PathValue("id")
	var resp sessionResponse
	found, err := s.store.With(id, func(session *kmeans.Session) error {
		err := fn(session)
		resp = newSessionResponse(id, session)
		return err
	})
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
		return
	}
	if err != nil {
		s.logger.Warn("session %s: %v", id, err)
		writeError(w, engineStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(*kmeans.Session) error { return nil })
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.Delete(id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddCentroid(w http.ResponseWriter, r *http.Request) {
	var p kmeans.Point
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid centroid: %w", err))
		return
	}
	s.withSession(w, r, func(session *kmeans.Session) error {
		session.AddManualCentroid(p)
		return nil
	})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(session *kmeans.Session) error {
		_, err := session.Step()
		return err
	})
}

func (s *Server) handleConverge(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(session *kmeans.Session) error {
		_, err := session.Run()
		return err
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(session *kmeans.Session) error {
		session.Reset()
		return nil
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var frame render.Frame
	found, _ := s.store.With(id, func(session *kmeans.Session) error {
		snap := session.Snapshot()
		frame = render.Frame{
			Title:     fmt.Sprintf("K-Means %s, step %d", session.Method(), snap.Step),
			Data:      session.Data(),
			Centroids: snap.Centroids,
			Labels:    snap.Labels,
		}
		if snap.Phase == kmeans.Uninitialized {
			frame.Centroids = session.ManualCentroids()
		}
		return nil
	})
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.HTML(w, frame); err != nil {
		s.logger.Error("render session %s: %v", id, err)
	}
}
