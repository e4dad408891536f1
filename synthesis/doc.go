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

// Package synthesis turns a question plus retrieved context into a streamed,
// grounded answer.
//
// The Synthesizer drives a tool-calling conversational model: it resolves the
// per-client system instruction, reconstructs prior turns, attaches the
// trimmed retrieval context, and forwards text chunks as the model produces
// them. When the model requests tool calls instead of text, each call is
// dispatched through a closed executor table; executor failures never abort
// the answer, they produce structured error responses fed back to the model.
package synthesis
