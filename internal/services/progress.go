package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/vidcourse-backend/internal/data/repos"
	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/dbctx"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

//go:embed stage_weights.yaml
var defaultStageWeightsYAML []byte

var ErrInvalidStage = errors.New("invalid progress stage")

// StageWeights is the ordered stage table used to derive overall progress.
type StageWeights struct {
	order  []types.ProgressStage
	weight map[types.ProgressStage]float64
}

type stageWeightsFile struct {
	Stages []struct {
		Name   string  `yaml:"name"`
		Weight float64 `yaml:"weight"`
	} `yaml:"stages"`
}

func ParseStageWeights(raw []byte) (StageWeights, error) {
	var f stageWeightsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return StageWeights{}, fmt.Errorf("parse stage weights: %w", err)
	}
	sw := StageWeights{weight: map[types.ProgressStage]float64{}}
	sum := 0.0
	for _, s := range f.Stages {
		st := types.ProgressStage(strings.TrimSpace(s.Name))
		if !st.Valid() || st.Terminal() {
			return StageWeights{}, fmt.Errorf("stage weights: unknown stage %q", s.Name)
		}
		if _, dup := sw.weight[st]; dup {
			return StageWeights{}, fmt.Errorf("stage weights: duplicate stage %q", st)
		}
		if s.Weight < 0 || math.IsNaN(s.Weight) {
			return StageWeights{}, fmt.Errorf("stage weights: negative weight for %q", st)
		}
		sw.order = append(sw.order, st)
		sw.weight[st] = s.Weight
		sum += s.Weight
	}
	if len(sw.order) != len(types.WorkStages) {
		return StageWeights{}, fmt.Errorf("stage weights: want %d stages, got %d", len(types.WorkStages), len(sw.order))
	}
	if math.Abs(sum-1) > 1e-6 {
		return StageWeights{}, fmt.Errorf("stage weights: sum is %.6f, want 1", sum)
	}
	return sw, nil
}

func DefaultStageWeights() StageWeights {
	sw, err := ParseStageWeights(defaultStageWeightsYAML)
	if err != nil {
		panic(err)
	}
	return sw
}

// LoadStageWeights reads an override table from path, falling back to the
// embedded defaults when path is empty or the file is invalid.
func LoadStageWeights(log *logger.Logger, path string) StageWeights {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultStageWeights()
	}
	raw, err := os.ReadFile(path)
	if err == nil {
		var sw StageWeights
		if sw, err = ParseStageWeights(raw); err == nil {
			return sw
		}
	}
	if log != nil {
		log.Warn("Invalid stage weights override; using defaults", "path", path, "error", err)
	}
	return DefaultStageWeights()
}

func (w StageWeights) Weight(stage types.ProgressStage) float64 { return w.weight[stage] }

// Overall is the sum of weights of every stage before stage plus the clamped
// fraction of stage itself. Completed is always 1.
func (w StageWeights) Overall(stage types.ProgressStage, stageProgress float64) float64 {
	if stage == types.StageCompleted {
		return 1
	}
	total := 0.0
	for _, st := range w.order {
		if st == stage {
			return math.Min(1, total+w.weight[st]*clamp01(stageProgress))
		}
		total += w.weight[st]
	}
	return math.Min(1, total)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type ProgressUpdate struct {
	CourseID      uuid.UUID
	SessionID     uuid.UUID
	Stage         types.ProgressStage
	StageProgress float64
	Step          string
	Metadata      map[string]any
}

type ProgressService interface {
	Start(ctx context.Context, tx *gorm.DB, courseID, sessionID uuid.UUID) (*types.ProgressRecord, error)
	Report(ctx context.Context, u ProgressUpdate) (*types.ProgressRecord, error)
	Get(ctx context.Context, courseID, sessionID uuid.UUID) (*types.ProgressRecord, error)
	Latest(ctx context.Context, courseID uuid.UUID) (*types.ProgressRecord, error)
	Weights() StageWeights
}

type progressService struct {
	log      *logger.Logger
	repo     repos.ProgressRepo
	notifier CourseNotifier
	weights  StageWeights
}

func NewProgressService(baseLog *logger.Logger, repo repos.ProgressRepo, notifier CourseNotifier, weights StageWeights) ProgressService {
	if weights.weight == nil {
		weights = DefaultStageWeights()
	}
	if notifier == nil {
		notifier = NewCourseNotifier(nil)
	}
	return &progressService{
		log:      baseLog.With("service", "ProgressService"),
		repo:     repo,
		notifier: notifier,
		weights:  weights,
	}
}

func (s *progressService) Weights() StageWeights { return s.weights }

func (s *progressService) Start(ctx context.Context, tx *gorm.DB, courseID, sessionID uuid.UUID) (*types.ProgressRecord, error) {
	return s.repo.Ensure(dbctx.Context{Ctx: ctx, Tx: tx}, &types.ProgressRecord{
		CourseID:    courseID,
		SessionID:   sessionID,
		Stage:       types.StageInitialization,
		CurrentStep: "Starting",
	})
}

// Report applies a stage update. Updates to a terminal record are ignored and
// the stored record is returned unchanged; overall progress never moves backwards.
func (s *progressService) Report(ctx context.Context, u ProgressUpdate) (*types.ProgressRecord, error) {
	if !u.Stage.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, u.Stage)
	}
	dbc := dbctx.Context{Ctx: ctx}
	rec, err := s.repo.Get(dbc, u.CourseID, u.SessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		if rec, err = s.Start(ctx, nil, u.CourseID, u.SessionID); err != nil {
			return nil, err
		}
	}
	if rec.Stage.Terminal() {
		return rec, nil
	}

	var applied bool
	if u.Stage == types.StageFailed {
		applied, err = s.repo.MarkFailed(dbc, rec.ID, u.Step)
	} else {
		adv := repos.ProgressAdvance{
			Stage:         u.Stage,
			StageProgress: clamp01(u.StageProgress),
			Overall:       math.Max(rec.OverallProgress, s.weights.Overall(u.Stage, u.StageProgress)),
			CurrentStep:   u.Step,
		}
		if u.Stage == types.StageCompleted {
			adv.StageProgress = 1
		}
		if len(u.Metadata) > 0 {
			if raw, mErr := json.Marshal(u.Metadata); mErr == nil {
				adv.Metadata = datatypes.JSON(raw)
			}
		}
		applied, err = s.repo.Advance(dbc, rec.ID, adv)
	}
	if err != nil {
		return nil, err
	}

	cur, err := s.repo.Get(dbc, u.CourseID, u.SessionID)
	if err != nil {
		return nil, err
	}
	if applied {
		s.log.Debug("Progress updated",
			"course_id", u.CourseID,
			"stage", cur.Stage,
			"overall", cur.OverallProgress,
		)
		s.notifier.ProgressUpdated(ctx, cur)
	}
	return cur, nil
}

func (s *progressService) Get(ctx context.Context, courseID, sessionID uuid.UUID) (*types.ProgressRecord, error) {
	return s.repo.Get(dbctx.Context{Ctx: ctx}, courseID, sessionID)
}

func (s *progressService) Latest(ctx context.Context, courseID uuid.UUID) (*types.ProgressRecord, error) {
	return s.repo.Latest(dbctx.Context{Ctx: ctx}, courseID)
}
