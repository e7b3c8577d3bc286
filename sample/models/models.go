// Package models is a small application schema showing how models are
// declared and registered for anonymization.
package models

import (
	"github.com/dbsmedya/goanonymize/pkg/anonymize"
	"github.com/dbsmedya/goanonymize/pkg/faker"
)

func init() {
	anonymize.Register(User{})
	anonymize.Register(Order{})
}

// User rewrites personal data on every account, including deleted ones,
// and scrubs the addresses and sessions that belong to it.
type User struct{}

func (User) Name() string  { return "User" }
func (User) Table() string { return "users" }

func (User) Relations() map[string]anonymize.Relation {
	return map[string]anonymize.Relation{
		"addresses": {Kind: anonymize.HasMany, Table: "addresses", ForeignKey: "user_id"},
		"sessions":  {Kind: anonymize.HasMany, Table: "sessions", ForeignKey: "user_id"},
	}
}

func (User) ToAnonymize(f faker.Faker, rec anonymize.Record) (anonymize.RewriteSpec, error) {
	spec := anonymize.RewriteSpec{}.
		Set("first_name", f.FirstName()).
		Set("last_name", f.LastName()).
		Set("email", f.SafeEmail(rec.Get("id"))).
		Set("phone", f.Numerify("+1-###-###-####")).
		Set("last_login_ip", f.IPv4())

	spec = spec.SetRelation("addresses", map[string]any{
		"street": f.Street(),
		"city":   f.City(),
		"zip":    f.Zip(),
	})
	spec = spec.SetRelation("sessions", map[string]any{
		"ip_address": f.IPv4(),
		"user_agent": nil,
	})
	return spec, nil
}

// Order only touches shipped orders and skips soft-deleted rows. Its
// customer's company name is rewritten through the belongs-to relation.
type Order struct{}

func (Order) Name() string       { return "Order" }
func (Order) Table() string      { return "orders" }
func (Order) PrimaryKey() string { return "order_id" }

func (Order) AnonymizeCondition() anonymize.Condition {
	return anonymize.Condition{Where: "`status` IN (?, ?)", Args: []any{"shipped", "delivered"}}
}

func (Order) SoftDeleteColumn() string { return "deleted_at" }
func (Order) AnonymizeTrashed() bool   { return false }

func (Order) Relations() map[string]anonymize.Relation {
	return map[string]anonymize.Relation{
		"company": {Kind: anonymize.BelongsTo, Table: "companies", ForeignKey: "company_id"},
	}
}

func (Order) ToAnonymize(f faker.Faker, rec anonymize.Record) (anonymize.RewriteSpec, error) {
	fields := map[string]any{
		"shipping_name":  f.Name(),
		"shipping_phone": f.Phone(),
		"notes":          nil,
		anonymize.RelationsKey: map[string]any{
			"company": map[string]any{"name": f.Company()},
		},
	}
	if rec.String("gift_message") != "" {
		fields["gift_message"] = f.Word()
	}
	return anonymize.RewriteSpec{Fields: fields}, nil
}
