package models

import (
	"testing"

	"lending-service/pkg/apperrors"
)

func TestClientCreateToClient(t *testing.T) {
	lat, lng := 19.076, 72.8777
	req := &ClientCreate{
		ClientName:         "  Meera Shah ",
		ClientPhoneNumbers: []string{"", " 9876543210 "},
		Latitude:           &lat,
		Longitude:          &lng,
		Loans: []LoanRequest{
			{LoanAmount: 5000, InterestRate: 10, TenureDays: 50, EmiType: EmiTypeDaily},
			{LoanAmount: 20000, InterestRate: 12, TenureMonths: 10, EmiType: EmiTypeMonthly},
		},
	}

	client, err := req.ToClient(InterestPolicyTenure, "agent-7", created)
	if err != nil {
		t.Fatalf("ToClient: %v", err)
	}

	if client.ClientName != "Meera Shah" || len(client.ClientPhoneNumbers) != 1 || client.ClientPhoneNumbers[0] != "9876543210" {
		t.Errorf("client = %+v", client)
	}
	if len(client.Loans) != 2 {
		t.Fatalf("loans = %d, want 2", len(client.Loans))
	}
	for _, loan := range client.Loans {
		if loan.ClientID != client.ID || loan.CreatedBy != "agent-7" {
			t.Errorf("loan = %+v", loan)
		}
	}
	if client.GoogleMapsLink != "https://www.google.com/maps?q=19.076,72.8777" {
		t.Errorf("maps link = %s", client.GoogleMapsLink)
	}
}

func TestClientCreateRejectsAnyBadLoan(t *testing.T) {
	req := &ClientCreate{
		ClientName:         "Meera Shah",
		ClientPhoneNumbers: []string{"9876543210"},
		Loans: []LoanRequest{
			{LoanAmount: 5000, InterestRate: 10, TenureDays: 50, EmiType: EmiTypeDaily},
			{LoanAmount: 5000, InterestRate: 10, EmiType: EmiTypeDaily},
		},
	}

	client, err := req.ToClient(InterestPolicyTenure, "agent-7", created)
	if client != nil || !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("ToClient = %v, %v; want validation error and no client", client, err)
	}
}

func TestClientCloneIsDeep(t *testing.T) {
	original := &Client{
		ID:    "c1",
		Loans: []*Loan{{ID: "l1", EmiRecords: []EmiRecord{{Amount: 10}}}},
	}

	cp := original.Clone()
	cp.Loans[0].EmiRecords[0].Amount = 99
	cp.Loans[0].TotalCollected = 99

	if original.Loans[0].EmiRecords[0].Amount != 10 || original.Loans[0].TotalCollected != 0 {
		t.Errorf("clone shares state with original")
	}
	if cp.FindLoan("l1") == nil || cp.FindLoan("missing") != nil {
		t.Errorf("FindLoan mismatch")
	}
}
