/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import "time"

// EpochRoot is a merkle root accepted for verification during an epoch.
type EpochRoot struct {
	Root        string    `json:"root"`
	Epoch       int64     `json:"epoch"`
	PublishedAt time.Time `json:"published_at"`
}

// ProofAcceptedEvent is published after a proof has been admitted. It never
// carries the proof, the full nullifier or the full merkle root.
type ProofAcceptedEvent struct {
	EventID              string    `json:"event_id"`
	InvoiceID            string    `json:"invoice_id"`
	Scheme               string    `json:"scheme"`
	NullifierFingerprint string    `json:"nullifier_fingerprint"`
	Escrowed             bool      `json:"escrowed"`
	Route                string    `json:"route"`
	AcceptedAt           time.Time `json:"accepted_at"`
}
