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

// Package stream delivers synthesis output to clients.
//
// Two paths serve the same message: the Broker forwards chunks from an
// in-process producer to live subscribers, replaying what was already
// produced to late attachers; the Resumer serves clients with no live
// producer by polling stored message state and re-emitting only newly
// appended text. Both paths terminate with a single done event carrying the
// structured result list and classified type.
package stream
