// Copyright 2025 Seamark Systems
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

package worker

import "errors"

var (
	// ErrQueueClosed indicates the queue no longer accepts jobs.
	ErrQueueClosed = errors.New("worker: queue closed")

	// ErrAlreadyQueued indicates the message already has an active job.
	// The queue guarantees at most one worker per message id.
	ErrAlreadyQueued = errors.New("worker: message already queued")
)
