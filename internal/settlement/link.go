package settlement

import (
	"errors"
	"net/url"
	"strings"

	"github.com/mmynk/splitroom/internal/models"
)

// DefaultScheme is the URI scheme of the pay-to link.
const DefaultScheme = "upi"

var ErrNilRequest = errors.New("nil settlement request")

// PaymentLink renders req as scheme://pay?payee=..&payeeName=..&amount=..&currency=..&note=..
// The amount is always written with two fraction digits. The note is omitted when
// the memo is empty.
func PaymentLink(req *models.SettlementRequest, scheme string) (string, error) {
	if req == nil {
		return "", ErrNilRequest
	}
	if scheme == "" {
		scheme = DefaultScheme
	}

	q := url.Values{}
	q.Set("payee", req.PayeeIdentifier)
	q.Set("payeeName", req.PayeeName)
	q.Set("amount", models.FormatAmount(req.Amount))
	q.Set("currency", req.Currency)
	if len(req.Memo) > 0 {
		q.Set("note", strings.Join(req.Memo, ", "))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     "pay",
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}
