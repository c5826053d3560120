// Copyright 2024 Fitness Knowledge Service Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when the question is blank after trimming.
// It is recovered at the HTTP boundary as a client error and never enters
// the pipeline.
var ErrEmptyInput = errors.New("question cannot be empty")

// Pipeline stages, used to identify where a request failed
const (
	StageClassify = "classify"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageRoute    = "route"
)

// ProcessingError wraps any internal pipeline failure. The stage and cause
// are for logs only; callers surface a uniform failure to clients.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("pipeline failed at stage %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// IsProcessingFailure reports whether an error is an internal pipeline failure
func IsProcessingFailure(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}
