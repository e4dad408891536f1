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

// Package worker runs the answering pipeline for enqueued messages.
//
// The Queue dispatches each message to a pool worker under an exclusive
// per-message ownership guarantee and a cancellable per-job context. The
// Pipeline is the state machine one worker drives: classify, process the
// query, retrieve, synthesize with streamed output, persist. Failures are
// caught once at the job boundary, recorded on the message status and
// re-raised for the queue's retry policy.
package worker
