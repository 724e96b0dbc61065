package domain

import "github.com/yungbote/vidcourse-backend/internal/domain/courses"

type Course = courses.Course
type Segment = courses.Segment
type SegmentStatus = courses.SegmentStatus
type Question = courses.Question
type ProgressRecord = courses.ProgressRecord
type ProgressStage = courses.ProgressStage
type TimeRange = courses.TimeRange

const (
	SegmentPending           = courses.SegmentPending
	SegmentProcessing        = courses.SegmentProcessing
	SegmentCompleted         = courses.SegmentCompleted
	SegmentFailed            = courses.SegmentFailed
	SegmentPermanentlyFailed = courses.SegmentPermanentlyFailed

	StageInitialization      = courses.StageInitialization
	StagePlanning            = courses.StagePlanning
	StageGeneration          = courses.StageGeneration
	StageQualityVerification = courses.StageQualityVerification
	StageStorage             = courses.StageStorage
	StageCompleted           = courses.StageCompleted
	StageFailed              = courses.StageFailed
)

var (
	CanTransition  = courses.CanTransition
	EncodeConcepts = courses.EncodeConcepts
	MergeConcepts  = courses.MergeConcepts
	ValidateRanges = courses.ValidateRanges
	WorkStages     = courses.WorkStages

	ErrInvalidRanges = courses.ErrInvalidRanges
)
