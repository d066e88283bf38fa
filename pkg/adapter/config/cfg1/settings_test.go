// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cfg1_test

import (
	"encoding/json"
	"fmt"

	"github.com/momeni/schema-forge/pkg/adapter/config/cfg1"
	"github.com/momeni/schema-forge/pkg/core/model"
)

func Example_jsonSerialization() {
	s := &cfg1.Serializable{
		Version: model.SemVer{1, 4, 5},
	}
	md := 12
	lenient := true
	s.Settings.Visible.Graph.MaxDepth = &md
	s.Settings.Visible.Validation.Lenient = &lenient
	b, err := json.Marshal(s)
	fmt.Println(err)
	fmt.Println(string(b))
	// Output:
	// <nil>
	// {"version":"1.4.5","graph":{"max_depth":12},"validation":{"lenient":true},"ddl":{"auto_timestamps":null}}
}

func Example_jsonSerializationWithNilSettings() {
	s := &cfg1.Serializable{
		Version: model.SemVer{4, 1, 5},
	}
	b, err := json.Marshal(s)
	fmt.Println(err)
	fmt.Println(string(b))
	// Output:
	// <nil>
	// {"version":"4.1.5","graph":{"max_depth":null},"validation":{"lenient":null},"ddl":{"auto_timestamps":null}}
}
