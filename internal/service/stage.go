package service

import (
	"context"
	"errors"
	"fmt"

	"marketsync/internal/sheet"
)

type Stage string

const (
	StageConnect Stage = "connect"
	StageLoad    Stage = "load"
	StageSelect  Stage = "select"
	StageSync    Stage = "sync"
)

var (
	ErrRunInProgress = errors.New("selection run already in progress")
	errNotConfigured = errors.New("worksheet store not configured")
)

// StageError names the pipeline step that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// FailedStage reports the stage recorded in err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// StoreOpener is satisfied by *sheet.Opener.
type StoreOpener interface {
	Open(ctx context.Context, readOnly bool) (*sheet.Spreadsheet, error)
	OpenForRead(ctx context.Context) (*sheet.Spreadsheet, error)
}
