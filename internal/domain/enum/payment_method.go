package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// PaymentMethod represents how an order was settled
type PaymentMethod int

const (
	PaymentMethodCash PaymentMethod = 0
	PaymentMethodCard PaymentMethod = 1
)

func (m PaymentMethod) String() string {
	return [...]string{"Cash", "Card"}[m]
}

func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		// Try unmarshaling as int
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*m = PaymentMethod(i)
		return nil
	}
	switch str {
	case "Cash", "cash":
		*m = PaymentMethodCash
	case "Card", "card":
		*m = PaymentMethodCard
	}
	return nil
}

// ParsePaymentMethod maps a request string to a PaymentMethod, defaulting
// to cash
func ParsePaymentMethod(s string) PaymentMethod {
	switch s {
	case "Card", "card":
		return PaymentMethodCard
	default:
		return PaymentMethodCash
	}
}

func (m PaymentMethod) Value() (driver.Value, error) {
	return int64(m), nil
}

func (m *PaymentMethod) Scan(value interface{}) error {
	if value == nil {
		*m = PaymentMethodCash
		return nil
	}
	switch v := value.(type) {
	case int64:
		*m = PaymentMethod(v)
	case int:
		*m = PaymentMethod(v)
	}
	return nil
}
