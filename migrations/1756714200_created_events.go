package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("events")

		collection.Fields.Add(
			&core.TextField{
				Name:     "name",
				Required: true,
				Max:      200,
			},
			&core.TextField{
				Name: "description",
				Max:  5000,
			},
			&core.TextField{
				Name: "venue",
				Max:  500,
			},
			&core.RelationField{
				Name:          "created_by",
				Required:      true,
				CollectionId:  users.Id,
				MaxSelect:     1,
				CascadeDelete: false,
			},
			&core.DateField{
				Name: "opening_at",
			},
			&core.DateField{
				Name: "closing_at",
			},
			// Counter backing gap-free ticket numbering. Holds the number
			// the next issued ticket will receive.
			&core.NumberField{
				Name:     "next_ticket_number",
				OnlyInt:  true,
				Min:      types.Pointer(1.0),
				Required: true,
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_events_created_by", false, "created_by", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
