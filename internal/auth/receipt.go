package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const receiptTopic = "bits_transaction_receipt"

type Cost struct {
	Amount int    `json:"amount"`
	Type   string `json:"type"`
}

type Product struct {
	DomainID      string `json:"domainId"`
	SKU           string `json:"sku"`
	DisplayName   string `json:"displayName,omitempty"`
	InDevelopment bool   `json:"inDevelopment,omitempty"`
	Cost          Cost   `json:"cost"`
}

type ReceiptData struct {
	TransactionID string  `json:"transactionId"`
	Time          string  `json:"time"`
	UserID        string  `json:"userId"`
	Product       Product `json:"product"`
}

// Receipt is the signed proof of a completed bits transaction.
type Receipt struct {
	Topic string      `json:"topic"`
	Data  ReceiptData `json:"data"`
	jwt.RegisteredClaims
}

// VerifyReceipt validates a transaction receipt signed with the extension secret.
func (c *Codec) VerifyReceipt(raw string) (Receipt, error) {
	var r Receipt
	if err := c.parse(raw, &r); err != nil {
		return Receipt{}, err
	}
	if r.Topic != receiptTopic {
		return Receipt{}, fmt.Errorf("%w: unexpected receipt topic %q", ErrMalformed, r.Topic)
	}
	if r.Data.TransactionID == "" {
		return Receipt{}, fmt.Errorf("%w: missing transaction id", ErrMalformed)
	}
	return r, nil
}
