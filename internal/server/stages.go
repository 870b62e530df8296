package server

import (
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/stagemap/pkg/editor"
	"github.com/matzehuels/stagemap/pkg/l10n"
	"github.com/matzehuels/stagemap/pkg/session"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// stageResponse is a stage together with its index, which stage.Node
// leaves out of its JSON form.
type stageResponse struct {
	Index int `json:"index"`
	stage.Node
}

func stageOf(n stage.Node) stageResponse {
	return stageResponse{Index: n.Index, Node: n}
}

type addStageRequest struct {
	Label     string           `json:"label" validate:"max=200"`
	Type      string           `json:"type"`
	Telemetry *stage.Telemetry `json:"telemetry"`
	Neighbors []int            `json:"neighbors" validate:"dive,gte=0"`
}

// addStage creates a stage. Omitted attributes take the editor defaults; the
// resulting stage must pass the same validation as an edit.
func (s *Server) addStage(w http.ResponseWriter, r *http.Request) {
	var req addStageRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.withMap(w, r, http.StatusCreated, func(sess *session.Session) (any, error) {
		contentType := req.Type
		if contentType == "" {
			contentType = sess.StageType
		}
		n, err := sess.Editor.AddNode(editor.AddParams{
			Type:      contentType,
			Label:     req.Label,
			Telemetry: req.Telemetry,
			Neighbors: stage.NewNeighbors(req.Neighbors...),
		})
		if err != nil {
			return nil, err
		}
		if err := sess.Validator.Validate(stage.FormOf(n)); err != nil {
			return nil, err
		}
		return stageOf(n), nil
	})
}

func (s *Server) getStage(w http.ResponseWriter, r *http.Request) {
	index, err := stageIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withMap(w, r, http.StatusOK, func(sess *session.Session) (any, error) {
		n, err := sess.Editor.Node(index)
		if err != nil {
			return nil, err
		}
		return stageOf(n), nil
	})
}

// patchStageRequest holds the attributes to change; nil fields stay as they are.
type patchStageRequest struct {
	Label     *string  `json:"label"`
	Type      *string  `json:"type"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Width     *float64 `json:"width"`
	Height    *float64 `json:"height"`
	Neighbors *[]int   `json:"neighbors"`
}

// apply makes the requested changes to the stage at index, which currently
// looks like n.
func (req patchStageRequest) apply(ed *editor.Editor, index int, n stage.Node) error {
	var errs []error
	if req.Label != nil {
		errs = append(errs, ed.SetLabel(index, *req.Label))
	}
	if req.Type != nil {
		errs = append(errs, ed.SetType(index, *req.Type))
	}
	if req.X != nil || req.Y != nil {
		x, y := n.Telemetry.X, n.Telemetry.Y
		if req.X != nil {
			x = *req.X
		}
		if req.Y != nil {
			y = *req.Y
		}
		errs = append(errs, ed.UpdatePosition(index, x, y))
	}
	if req.Width != nil || req.Height != nil {
		width, height := n.Telemetry.Width, n.Telemetry.Height
		if req.Width != nil {
			width = *req.Width
		}
		if req.Height != nil {
			height = *req.Height
		}
		errs = append(errs, ed.SetSize(index, width, height))
	}
	if req.Neighbors != nil {
		errs = append(errs, ed.SetNeighbors(index, *req.Neighbors))
	}
	return stderrors.Join(errs...)
}

// patchStage changes a stage inside one edit session. If the result does
// not validate, nothing is saved and the field errors are returned.
func (s *Server) patchStage(w http.ResponseWriter, r *http.Request) {
	index, err := stageIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req patchStageRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.withMap(w, r, http.StatusOK, func(sess *session.Session) (any, error) {
		ed := sess.Editor
		n, err := ed.Node(index)
		if err != nil {
			return nil, err
		}
		if _, err := ed.BeginEdit(index); err != nil {
			return nil, err
		}
		if err := req.apply(ed, index, n); err != nil {
			return nil, err
		}
		ok, err := ed.CommitEdit(index, sess.Validator)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ed.FieldErrors()
		}
		n, err = ed.Node(index)
		if err != nil {
			return nil, err
		}
		return stageOf(n), nil
	})
}

type neighborsRequest struct {
	Neighbors []int `json:"neighbors" validate:"required,dive,gte=0"`
}

func (s *Server) setNeighbors(w http.ResponseWriter, r *http.Request) {
	index, err := stageIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req neighborsRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.withMap(w, r, http.StatusOK, func(sess *session.Session) (any, error) {
		if err := sess.Editor.SetNeighbors(index, req.Neighbors); err != nil {
			return nil, err
		}
		n, err := sess.Editor.Node(index)
		if err != nil {
			return nil, err
		}
		return stageOf(n), nil
	})
}

// deleteStage removes a stage. The API has no dialog, so the removal is
// confirmed automatically.
func (s *Server) deleteStage(w http.ResponseWriter, r *http.Request) {
	index, err := stageIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withMap(w, r, http.StatusNoContent, func(sess *session.Session) (any, error) {
		return nil, sess.Editor.RequestRemove(index)
	})
}

type optionsResponse struct {
	Instructions string                  `json:"instructions"`
	Options      []editor.NeighborOption `json:"options"`
}

// neighborOptions lists the stages the stage at index can be linked to.
func (s *Server) neighborOptions(w http.ResponseWriter, r *http.Request) {
	index, err := stageIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.withMap(w, r, http.StatusOK, func(sess *session.Session) (any, error) {
		options, err := sess.Editor.BeginEdit(index)
		if err != nil {
			return nil, err
		}
		if err := sess.Editor.CancelEdit(index); err != nil {
			return nil, err
		}
		resp := optionsResponse{
			Instructions: sess.Dict.Get(l10n.KeyNeighborsInstructions),
			Options:      options,
		}
		if len(options) == 0 {
			resp.Instructions = sess.Dict.Get(l10n.KeyNoNeighborsAvailable)
		}
		return resp, nil
	})
}
