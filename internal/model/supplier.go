package model

import (
	"strings"
	"time"
)

const DefaultCountry = "China"

// Supplier is a company that provides products.
type Supplier struct {
	ID            int64      `json:"id"`
	CompanyName   string     `json:"company_name"`
	ContactPerson string     `json:"contact_person"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	Country       string     `json:"country"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type SupplierCreate struct {
	CompanyName   string  `json:"company_name"`
	ContactPerson string  `json:"contact_person"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	Address       string  `json:"address"`
	Country       *string `json:"country,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type SupplierUpdate struct {
	CompanyName   Optional[string] `json:"company_name,omitzero"`
	ContactPerson Optional[string] `json:"contact_person,omitzero"`
	Email         Optional[string] `json:"email,omitzero"`
	Phone         Optional[string] `json:"phone,omitzero"`
	Address       Optional[string] `json:"address,omitzero"`
	Country       Optional[string] `json:"country,omitzero"`
	IsActive      Optional[bool]   `json:"is_active,omitzero"`
}

// supplierLimits maps each text field to its maximum length.
var supplierLimits = map[string]int{
	"company_name":   100,
	"contact_person": 50,
	"phone":          20,
	"address":        200,
	"country":        50,
}

func (in SupplierCreate) Build() Supplier {
	s := Supplier{
		CompanyName:   strings.TrimSpace(in.CompanyName),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		Email:         strings.TrimSpace(in.Email),
		Phone:         strings.TrimSpace(in.Phone),
		Address:       strings.TrimSpace(in.Address),
		Country:       DefaultCountry,
		IsActive:      true,
	}
	if in.Country != nil {
		s.Country = strings.TrimSpace(*in.Country)
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	return s
}

func (p SupplierUpdate) Validate() error {
	var ve ValidationError
	for _, f := range []struct {
		field string
		opt   Optional[string]
	}{
		{"company_name", p.CompanyName},
		{"contact_person", p.ContactPerson},
		{"email", p.Email},
		{"phone", p.Phone},
		{"address", p.Address},
		{"country", p.Country},
	} {
		v, ok := f.opt.Get()
		if !ok {
			continue
		}
		if f.field == "email" {
			ve.Add("email", checkEmail(v))
		} else {
			ve.Add(f.field, checkText(v, true, supplierLimits[f.field]))
		}
	}
	return ve.Err()
}

func (p SupplierUpdate) Apply(s *Supplier) {
	for _, f := range []struct {
		opt Optional[string]
		dst *string
	}{
		{p.CompanyName, &s.CompanyName},
		{p.ContactPerson, &s.ContactPerson},
		{p.Email, &s.Email},
		{p.Phone, &s.Phone},
		{p.Address, &s.Address},
		{p.Country, &s.Country},
	} {
		if v, ok := f.opt.Get(); ok {
			*f.dst = strings.TrimSpace(v)
		}
	}
	if v, ok := p.IsActive.Get(); ok {
		s.IsActive = v
	}
}

// ValidateSupplier checks a Supplier for constraint violations.
func ValidateSupplier(s *Supplier) error {
	var ve ValidationError
	ve.Add("company_name", checkText(s.CompanyName, true, supplierLimits["company_name"]))
	ve.Add("contact_person", checkText(s.ContactPerson, true, supplierLimits["contact_person"]))
	ve.Add("email", checkEmail(s.Email))
	ve.Add("phone", checkText(s.Phone, true, supplierLimits["phone"]))
	ve.Add("address", checkText(s.Address, true, supplierLimits["address"]))
	ve.Add("country", checkText(s.Country, true, supplierLimits["country"]))
	return ve.Err()
}
