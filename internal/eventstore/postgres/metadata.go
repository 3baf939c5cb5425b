// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"encoding/json"

	"journeydynamics/internal/eventstore"
)

func marshalMetadata(m eventstore.Metadata) ([]byte, error) {
	return json.Marshal(m)
}

func unmarshalMetadata(data []byte) (eventstore.Metadata, error) {
	var m eventstore.Metadata
	if len(data) == 0 {
		return m, nil
	}
	err := json.Unmarshal(data, &m)
	return m, err
}
