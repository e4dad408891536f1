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


// Package storage provides the storage abstraction layer for answerd.
//
// This package defines store interfaces that decouple storage implementation
// from pipeline logic, so different backends (BadgerDB, in-memory, etc.) can
// be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backends:
//
//	stores, err := badger.NewStores(path)  // returns storage interfaces
//
// Internal package constructors (newMessageStore, newBackend, etc.) may
// return concrete types since they're only used within the implementation
// package.
//
// # Architecture
//
//   - MessageStore: pipeline messages and conversation history
//   - SessionStore: conversation sessions
//   - PromptStore: per-client system instruction lookup
//
// # Usage
//
// Create stores against an on-disk database:
//
//	stores, err := badger.NewStores("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// Use in tests with in-memory storage:
//
//	stores := badger.NewMemoryStores(t)
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support.
package storage
