/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the launcher layout and the hidden-app set.
// layout.json holds one flat record per app or folder, validated against the embedded JSON schemas.
// Writes are atomic (temp file, fsync, rename) and the previous file is kept as a timestamped backup.
// A corrupt layout.json falls back to the newest readable backup, then to nothing.
package storage
