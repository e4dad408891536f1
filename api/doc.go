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

// Package api exposes the answering pipeline over HTTP.
//
// Messages are enqueued with POST /messages and answered asynchronously;
// clients follow the answer over SSE (GET /messages/:id/stream) or by
// polling the snapshot endpoint. A stream attaches to the live broker topic
// when the producing worker runs in this process, and falls back to
// storage polling otherwise, so reconnects and cross-process reads behave
// the same way.
package api
