package actions

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/haasonsaas/neurodraws/internal/neuro"
	"github.com/haasonsaas/neurodraws/internal/testharness"
)

func TestCatalogNames(t *testing.T) {
	want := []string{"place", "shuffle", "spawn_square", "spawn_random_square", "move_square"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestRegistrationIsDeterministic(t *testing.T) {
	first, err := BuildRegistration("NeuroDraws")
	if err != nil {
		t.Fatalf("BuildRegistration() error = %v", err)
	}
	second, err := BuildRegistration("NeuroDraws")
	if err != nil {
		t.Fatalf("BuildRegistration() error = %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("registration differs between calls:\n%s\n%s", a, b)
	}
}

func TestRegistrationMessageShape(t *testing.T) {
	msg, err := BuildRegistration("NeuroDraws")
	if err != nil {
		t.Fatalf("BuildRegistration() error = %v", err)
	}
	if msg.Command != neuro.CommandRegister || msg.Game != "NeuroDraws" {
		t.Fatalf("unexpected envelope %+v", msg)
	}

	var data neuro.RegisterData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Actions) != 5 {
		t.Fatalf("expected 5 actions, got %d", len(data.Actions))
	}
	for _, action := range data.Actions {
		if action.Description == "" {
			t.Errorf("action %s has no description", action.Name)
		}
		var schema map[string]any
		if err := json.Unmarshal(action.Schema, &schema); err != nil {
			t.Fatalf("action %s schema is not an object: %v", action.Name, err)
		}
		def, _ := Lookup(action.Name)
		if def.HasParams() != (len(schema) > 0) {
			t.Errorf("action %s: schema presence mismatch", action.Name)
		}
	}
}

func TestSpawnSquareSchemaProperties(t *testing.T) {
	reg := Registration()
	var schema struct {
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
	}
	for _, action := range reg.Actions {
		if action.Name != SpawnSquare {
			continue
		}
		if err := json.Unmarshal(action.Schema, &schema); err != nil {
			t.Fatalf("decode schema: %v", err)
		}
	}
	if !reflect.DeepEqual(schema.Required, []string{"x", "y", "rgb"}) {
		t.Fatalf("unexpected required list %v", schema.Required)
	}
	if schema.Properties["rgb"]["type"] != "array" {
		t.Fatalf("expected rgb to be an array, got %v", schema.Properties["rgb"])
	}
}

func TestBuildUnregister(t *testing.T) {
	msg, err := BuildUnregister("NeuroDraws")
	if err != nil {
		t.Fatalf("BuildUnregister() error = %v", err)
	}
	var data neuro.UnregisterData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if msg.Command != neuro.CommandUnregister || len(data.ActionNames) != 5 {
		t.Fatalf("unexpected unregister message %s %v", msg.Command, data.ActionNames)
	}
}

func TestSchemasCompile(t *testing.T) {
	if err := initSchemas(); err != nil {
		t.Fatalf("initSchemas() error = %v", err)
	}
}

func TestCatalogReturnsCopy(t *testing.T) {
	defs := Catalog()
	defs[0].Name = "mutated"
	if Names()[0] != Place {
		t.Fatalf("Catalog() exposed internal state")
	}
}

func TestRegistrationGolden(t *testing.T) {
	msg, err := BuildRegistration("NeuroDraws")
	if err != nil {
		t.Fatalf("BuildRegistration() error = %v", err)
	}
	testharness.NewGolden(t).AssertJSON(msg)
}
