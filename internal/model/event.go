package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Category classifies an event for browsing.
type Category string

const (
    CategoryConference    Category = "CONFERENCE"
    CategoryWorkshop      Category = "WORKSHOP"
    CategorySeminar       Category = "SEMINAR"
    CategoryNetworking    Category = "NETWORKING"
    CategorySocial        Category = "SOCIAL"
    CategoryTech          Category = "TECH"
    CategoryBusiness      Category = "BUSINESS"
    CategoryArts          Category = "ARTS"
    CategorySports        Category = "SPORTS"
    CategoryEducation     Category = "EDUCATION"
    CategoryEntertainment Category = "ENTERTAINMENT"
    CategoryCommunity     Category = "COMMUNITY"
    CategoryOther         Category = "OTHER"
)

var categories = map[Category]bool{
    CategoryConference: true, CategoryWorkshop: true, CategorySeminar: true,
    CategoryNetworking: true, CategorySocial: true, CategoryTech: true,
    CategoryBusiness: true, CategoryArts: true, CategorySports: true,
    CategoryEducation: true, CategoryEntertainment: true, CategoryCommunity: true,
    CategoryOther: true,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool { return categories[c] }

// Event is a row of the `events` table.  Price is nullable; free events
// and events that do not sell tickets leave it unset.
//
// Fields:
//  ID          – UUID primary key.
//  OwnerID     – user who created the event and may edit it.
//  Title       – display title, reused as the checkout line item name.
//  Description – free text.
//  Date        – scheduled start.
//  Address     – venue address.
//  Banner      – image reference (URL or storage key).
//  Category    – see Category.
//  HasTickets  – whether tickets can be reserved.
//  Price       – per-ticket price in USD.
type Event struct {
    ID          string              `json:"id"`
    OwnerID     uint64              `json:"user_id"`
    Title       string              `json:"title"`
    Description string              `json:"description"`
    Date        time.Time           `json:"date"`
    Address     string              `json:"address"`
    Banner      string              `json:"banner"`
    Category    Category            `json:"category"`
    HasTickets  bool                `json:"has_tickets"`
    Price       decimal.NullDecimal `json:"price"`
    CreatedAt   time.Time           `json:"created_at"`
    UpdatedAt   time.Time           `json:"updated_at"`
}

// Sellable reports whether tickets may be reserved against the event:
// has_tickets must be set and the price must be present and positive.
func (e Event) Sellable() bool {
    return e.HasTickets && e.Price.Valid && e.Price.Decimal.IsPositive()
}
