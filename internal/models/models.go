// Package models defines the entities of the real estate back office.
package models

import (
	"strings"
	"time"
)

// Agent is a real estate agent. Agents own properties and contracts and receive notifications.
type Agent struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"first_name" validate:"required,max=100"`
	LastName      string    `json:"last_name" validate:"required,max=100"`
	Email         string    `json:"email" validate:"required,email"`
	Phone         string    `json:"phone,omitempty" validate:"max=30"`
	LicenseNumber string    `json:"license_number,omitempty" validate:"max=50"`
	Bio           string    `json:"bio,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullName returns "First Last".
func (a Agent) FullName() string {
	return joinNonEmpty(" ", a.FirstName, a.LastName)
}

// Address is a postal address shared by customers and properties.
type Address struct {
	Street       string `json:"street,omitempty" validate:"max=200"`
	Number       string `json:"number,omitempty" validate:"max=20"`
	Neighborhood string `json:"neighborhood,omitempty" validate:"max=100"`
	Locality     string `json:"locality,omitempty" validate:"max=100"`
	Province     string `json:"province,omitempty" validate:"max=100"`
	Country      string `json:"country,omitempty" validate:"max=100"`
}

// Full returns the address on one line, skipping empty parts.
func (a Address) Full() string {
	return joinNonEmpty(", ",
		joinNonEmpty(" ", a.Street, a.Number),
		a.Neighborhood, a.Locality, a.Province, a.Country)
}

// Customer is a tenant, owner or buyer.
type Customer struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone,omitempty" validate:"max=30"`
	Document   string `json:"document,omitempty" validate:"max=30"`
	Address    `json:"address"`
	BirthDate  Date      `json:"birth_date"`
	Profession string    `json:"profession,omitempty" validate:"max=100"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName returns "First Last".
func (c Customer) FullName() string {
	return joinNonEmpty(" ", c.FirstName, c.LastName)
}

// PropertyType is a kind of property, like house or apartment.
type PropertyType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PropertyStatus is the market status of a property, like available or rented.
type PropertyStatus struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Property is a real estate unit managed by an agent.
type Property struct {
	ID             int64  `json:"id"`
	Title          string `json:"title" validate:"required,max=200"`
	Description    string `json:"description,omitempty"`
	TypeID         int64  `json:"property_type_id" validate:"required"`
	TypeName       string `json:"property_type,omitempty"`
	StatusID       int64  `json:"property_status_id" validate:"required"`
	StatusName     string `json:"property_status,omitempty"`
	Address        `json:"address"`
	TotalSurface   float64 `json:"total_surface" validate:"gte=0"`
	CoveredSurface float64 `json:"covered_surface" validate:"gte=0"`
	Bedrooms       int     `json:"bedrooms" validate:"gte=0"`
	Bathrooms      int     `json:"bathrooms" validate:"gte=0"`
	Garage         bool    `json:"garage"`
	Furnished      bool    `json:"furnished"`
	SalePrice      Money   `json:"sale_price" validate:"gte=0"`
	RentalPrice    Money   `json:"rental_price" validate:"gte=0"`
	Expenses       Money   `json:"expenses" validate:"gte=0"`
	YearBuilt      int     `json:"year_built,omitempty" validate:"omitempty,gte=1800"`
	AgentID        int64   `json:"agent_id" validate:"required"`
	// OwnerID is the customer owning the property, 0 when unknown.
	OwnerID   int64     `json:"owner_id,omitempty"`
	OwnerName string    `json:"owner_name,omitempty"`
	Features  []Feature `json:"features,omitempty"`
	Tags      []Tag     `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Feature is an amenity a property offers, like a pool or a balcony.
type Feature struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty"`
}

// DefaultTagColor is the color of tags created without one.
const DefaultTagColor = "#007bff"

// Tag labels properties in listings.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// Country is the top level of the location hierarchy.
type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// State is a province of a country.
type State struct {
	ID        int64  `json:"id"`
	CountryID int64  `json:"country_id"`
	Name      string `json:"name"`
}

// City belongs to a state.
type City struct {
	ID      int64  `json:"id"`
	StateID int64  `json:"state_id"`
	Name    string `json:"name"`
}

// Company is the agency running the back office. It is printed on invoices.
type Company struct {
	Name    string `json:"name" toml:"name" validate:"required,max=200"`
	Address string `json:"address,omitempty" toml:"address"`
	Phone   string `json:"phone,omitempty" toml:"phone"`
	Email   string `json:"email,omitempty" toml:"email" validate:"omitempty,email"`
	Website string `json:"website,omitempty" toml:"website" validate:"omitempty,url"`
	TaxID   string `json:"tax_id,omitempty" toml:"tax_id"`
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
