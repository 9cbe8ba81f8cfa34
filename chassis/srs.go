package chassis

import "github.com/ryansname/sbox-sim/message"

// SRSMessages returns the low duty cycle airbag status frame
func SRSMessages() []*message.Periodic {
	return []*message.Periodic{
		message.MustNew(0x5A0, "ACU status", message.MustHex("000000C025029101"), 1, nil),
	}
}
