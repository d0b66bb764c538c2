// Package actions defines the catalog of canvas actions offered to the Neuro
// agent, their parameter schemas, and parameter decoding.
package actions

import (
	"bytes"
	"encoding/json"

	"github.com/haasonsaas/neurodraws/internal/neuro"
)

// Action names.
const (
	Place             = "place"
	Shuffle           = "shuffle"
	SpawnSquare       = "spawn_square"
	SpawnRandomSquare = "spawn_random_square"
	MoveSquare        = "move_square"
)

// Definition describes one registered action.
type Definition struct {
	Name        string
	Description string
	// Schema is the JSON Schema of the parameters, or empty when the
	// action takes none.
	Schema string
}

// HasParams reports whether the action declares parameters.
func (d Definition) HasParams() bool {
	return d.Schema != ""
}

var catalog = []Definition{
	{
		Name:        Place,
		Description: "Place the current unplaced square by making it fully opaque. Placed squares can no longer be moved.",
	},
	{
		Name:        Shuffle,
		Description: "Move the current unplaced square to a random position on the canvas.",
	},
	{
		Name:        SpawnSquare,
		Description: "Spawn an unplaced square at a specific position with a specific RGB color. Replaces any square that has not been placed yet.",
		Schema:      spawnSquareSchema,
	},
	{
		Name:        SpawnRandomSquare,
		Description: "Spawn an unplaced square at a random position with a random RGB color. Replaces any square that has not been placed yet.",
	},
	{
		Name:        MoveSquare,
		Description: "Move the current unplaced square to a new position.",
		Schema:      moveSquareSchema,
	},
}

// Catalog returns the action definitions in registration order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds an action by name.
func Lookup(name string) (Definition, bool) {
	for _, def := range catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Names returns every action name in registration order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, def := range catalog {
		names = append(names, def.Name)
	}
	return names
}

// Registration returns the actions/register payload for the full catalog.
func Registration() neuro.RegisterData {
	defs := make([]neuro.ActionDefinition, 0, len(catalog))
	for _, def := range catalog {
		defs = append(defs, neuro.ActionDefinition{
			Name:        def.Name,
			Description: def.Description,
			Schema:      compactSchema(def.Schema),
		})
	}
	return neuro.RegisterData{Actions: defs}
}

// BuildRegistration returns the actions/register message for game.
func BuildRegistration(game string) (neuro.Message, error) {
	return neuro.NewMessage(neuro.CommandRegister, game, Registration())
}

// BuildUnregister returns the actions/unregister message for the full catalog.
func BuildUnregister(game string) (neuro.Message, error) {
	return neuro.NewMessage(neuro.CommandUnregister, game, neuro.UnregisterData{ActionNames: Names()})
}

func compactSchema(schema string) json.RawMessage {
	if schema == "" {
		return json.RawMessage(`{}`)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(schema)); err != nil {
		// Schemas are compile-time constants covered by tests.
		panic("actions: invalid schema constant: " + err.Error())
	}
	return json.RawMessage(buf.Bytes())
}
