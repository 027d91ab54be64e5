package payment

import "strconv"

// Exportable field names. The vocabulary configuration decides which of
// these are offered and in what canonical order.
const (
	FieldID         = "id"
	FieldCustomerID = "customer-id"
	FieldDate       = "date"
	FieldStatus     = "status"
	FieldAmount     = "amount"
	FieldGateway    = "gateway"
	FieldName       = "name"
	FieldNote       = "note"
	FieldAddress    = "address"
	FieldEmail      = "email"
	FieldPhone      = "phone"
)

// Accessor stringifies one field of a record.
type Accessor func(r Record) string

var accessors = map[string]Accessor{
	FieldID:         func(r Record) string { return strconv.FormatInt(r.ID, 10) },
	FieldCustomerID: func(r Record) string { return strconv.FormatInt(r.CustomerID, 10) },
	FieldDate: func(r Record) string {
		if r.Date.IsZero() {
			return ""
		}
		return r.Date.Format(TimestampLayout)
	},
	FieldStatus:  func(r Record) string { return r.Status },
	FieldAmount:  func(r Record) string { return r.Total.StringFixed(2) },
	FieldGateway: func(r Record) string { return r.Gateway },
	FieldName:    func(r Record) string { return r.CustomerName },
	FieldNote:    func(r Record) string { return r.Note },
	FieldAddress: func(r Record) string { return r.Address },
	FieldEmail:   func(r Record) string { return r.Email },
	FieldPhone:   func(r Record) string { return r.Phone },
}

// LookupAccessor returns the accessor for a field name.
func LookupAccessor(field string) (Accessor, bool) {
	a, ok := accessors[field]
	return a, ok
}

// HasAccessor reports whether field can be read from a record.
func HasAccessor(field string) bool {
	_, ok := accessors[field]
	return ok
}
