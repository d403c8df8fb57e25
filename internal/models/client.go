package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lending-service/pkg/apperrors"
)

// Client is a borrower. Loans are owned by the client and removed with it.
type Client struct {
	ID                 string    `json:"id" bson:"_id"`
	ClientName         string    `json:"client_name" bson:"client_name"`
	ClientPhoneNumbers []string  `json:"client_phone_numbers" bson:"client_phone_numbers"`
	Email              string    `json:"email,omitempty" bson:"email,omitempty"`
	TemporaryAddress   string    `json:"temporary_address,omitempty" bson:"temporary_address,omitempty"`
	PermanentAddress   string    `json:"permanent_address,omitempty" bson:"permanent_address,omitempty"`
	ShopAddress        string    `json:"shop_address,omitempty" bson:"shop_address,omitempty"`
	HouseAddress       string    `json:"house_address,omitempty" bson:"house_address,omitempty"`
	ClientPhoto        string    `json:"client_photo,omitempty" bson:"client_photo,omitempty"`
	ShopPhoto          string    `json:"shop_photo,omitempty" bson:"shop_photo,omitempty"`
	HousePhoto         string    `json:"house_photo,omitempty" bson:"house_photo,omitempty"`
	Documents          []string  `json:"documents,omitempty" bson:"documents,omitempty"`
	ReferralName       string    `json:"referal_name,omitempty" bson:"referal_name,omitempty"`
	ReferralNumber     string    `json:"referal_number,omitempty" bson:"referal_number,omitempty"`
	GoogleMapsLink     string    `json:"google_maps_link,omitempty" bson:"google_maps_link,omitempty"`
	Location           *Location `json:"location,omitempty" bson:"location,omitempty"`
	CreatedBy          string    `json:"created_by" bson:"created_by"`
	Loans              []*Loan   `json:"loans" bson:"loans"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// FindLoan returns the loan with the given ID or nil
func (c *Client) FindLoan(loanID string) *Loan {
	for _, loan := range c.Loans {
		if loan.ID == loanID {
			return loan
		}
	}
	return nil
}

// Clone returns a deep copy of the client and its loans
func (c *Client) Clone() *Client {
	cp := *c
	cp.ClientPhoneNumbers = append([]string(nil), c.ClientPhoneNumbers...)
	cp.Documents = append([]string(nil), c.Documents...)
	if c.Location != nil {
		loc := *c.Location
		cp.Location = &loc
	}
	cp.Loans = make([]*Loan, len(c.Loans))
	for i, loan := range c.Loans {
		cp.Loans[i] = loan.Clone()
	}
	return &cp
}

// ClientSummary is the list view of a client without loans
type ClientSummary struct {
	ID                 string   `json:"id"`
	ClientName         string   `json:"client_name"`
	ClientPhoneNumbers []string `json:"client_phone_numbers"`
	Email              string   `json:"email,omitempty"`
	LoanCount          int      `json:"loan_count"`
}

// ToSummary converts a client to its list view
func (c *Client) ToSummary() *ClientSummary {
	return &ClientSummary{
		ID:                 c.ID,
		ClientName:         c.ClientName,
		ClientPhoneNumbers: c.ClientPhoneNumbers,
		Email:              c.Email,
		LoanCount:          len(c.Loans),
	}
}

// ClientCreate represents data for creating a client with its initial loans
type ClientCreate struct {
	ClientName         string        `json:"client_name"`
	ClientPhoneNumbers []string      `json:"client_phone_numbers"`
	Email              string        `json:"email,omitempty"`
	TemporaryAddress   string        `json:"temporary_address,omitempty"`
	PermanentAddress   string        `json:"permanent_address,omitempty"`
	ShopAddress        string        `json:"shop_address,omitempty"`
	HouseAddress       string        `json:"house_address,omitempty"`
	ReferralName       string        `json:"referal_name,omitempty"`
	ReferralNumber     string        `json:"referal_number,omitempty"`
	Latitude           *float64      `json:"latitude,omitempty"`
	Longitude          *float64      `json:"longitude,omitempty"`
	Loans              []LoanRequest `json:"loans"`

	// Filled from uploaded files, never from the request body
	ClientPhoto string   `json:"-"`
	ShopPhoto   string   `json:"-"`
	HousePhoto  string   `json:"-"`
	Documents   []string `json:"-"`
}

// Validate validates the client and every loan. Nothing is persisted when any
// loan is malformed.
func (c *ClientCreate) Validate() error {
	c.ClientName = strings.TrimSpace(c.ClientName)
	if c.ClientName == "" {
		return apperrors.Validation("client_name", "client name is required")
	}

	phones := c.ClientPhoneNumbers[:0]
	for _, phone := range c.ClientPhoneNumbers {
		if phone = strings.TrimSpace(phone); phone != "" {
			phones = append(phones, phone)
		}
	}
	c.ClientPhoneNumbers = phones
	if len(c.ClientPhoneNumbers) == 0 {
		return apperrors.Validation("client_phone_numbers", "at least one phone number is required")
	}

	if (c.Latitude == nil) != (c.Longitude == nil) {
		return apperrors.Validation("location", "latitude and longitude must be provided together")
	}

	for i := range c.Loans {
		if err := c.Loans[i].Validate(); err != nil {
			return fmt.Errorf("loan %d: %w", i+1, err)
		}
	}

	return nil
}

// ToClient builds the client and all of its loans. It either returns a complete
// client or an error; there is no partially built result.
func (c *ClientCreate) ToClient(policy InterestPolicy, createdBy string, now time.Time) (*Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		ID:                 uuid.NewString(),
		ClientName:         c.ClientName,
		ClientPhoneNumbers: c.ClientPhoneNumbers,
		Email:              strings.TrimSpace(c.Email),
		TemporaryAddress:   c.TemporaryAddress,
		PermanentAddress:   c.PermanentAddress,
		ShopAddress:        c.ShopAddress,
		HouseAddress:       c.HouseAddress,
		ClientPhoto:        c.ClientPhoto,
		ShopPhoto:          c.ShopPhoto,
		HousePhoto:         c.HousePhoto,
		Documents:          c.Documents,
		ReferralName:       c.ReferralName,
		ReferralNumber:     c.ReferralNumber,
		CreatedBy:          createdBy,
		Loans:              make([]*Loan, 0, len(c.Loans)),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if c.Latitude != nil && c.Longitude != nil {
		client.Location = &Location{
			Lat:     *c.Latitude,
			Lng:     *c.Longitude,
			Address: fmt.Sprintf("Lat: %v, Lng: %v", *c.Latitude, *c.Longitude),
		}
		client.GoogleMapsLink = client.Location.MapsLink()
	}

	for i := range c.Loans {
		loan, err := c.Loans[i].ToLoan(policy, createdBy, now)
		if err != nil {
			return nil, fmt.Errorf("loan %d: %w", i+1, err)
		}
		loan.ClientID = client.ID
		client.Loans = append(client.Loans, loan)
	}

	return client, nil
}
