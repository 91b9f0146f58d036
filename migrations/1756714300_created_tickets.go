package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "event",
				Required:      true,
				CollectionId:  events.Id,
				MaxSelect:     1,
				CascadeDelete: true,
			},
			&core.TextField{
				Name:     "description",
				Required: true,
				Max:      500,
			},
			&core.NumberField{
				Name:     "identification_number",
				OnlyInt:  true,
				Min:      types.Pointer(1.0),
				Required: true,
			},
			&core.TextField{
				Name: "location",
				Max:  200,
			},
			// 0 means no table assigned.
			&core.NumberField{
				Name:    "table_number",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
			},
			// Decimal stored as text to keep cents exact.
			&core.TextField{
				Name:    "price",
				Pattern: `^\d+(\.\d+)?$`,
			},
			// Payment provider order reference; empty means unsold.
			&core.TextField{
				Name: "order_ref",
				Max:  100,
			},
			&core.TextField{
				Name: "buyer",
				Max:  200,
			},
			&core.TextField{
				Name: "buyer_document",
				Max:  20,
			},
			&core.EmailField{
				Name: "buyer_email",
			},
			&core.TextField{
				Name: "buyer_phone",
				Max:  30,
			},
			&core.DateField{
				Name: "sales_end_at",
			},
			&core.BoolField{
				Name: "checked_in",
			},
			&core.DateField{
				Name: "checked_in_at",
			},
			&core.BoolField{
				Name: "accessory_collected",
			},
			&core.DateField{
				Name: "accessory_collected_at",
			},
			&core.TextField{
				Name: "accessory_notes",
				Max:  1000,
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

		collection.AddIndex("idx_tickets_event", false, "event", "")
		collection.AddIndex("idx_tickets_order_ref", false, "order_ref", "")
		collection.AddIndex("idx_tickets_event_number", true, "event, identification_number", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
