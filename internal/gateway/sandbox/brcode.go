package sandbox

import (
	"fmt"
	"strings"
)

// BRCode builds a static PIX EMV payload ("copia e cola") as published by
// the Banco Central do Brasil, terminated by its CRC16 field.
func BRCode(pixKey, merchantName, merchantCity, amount, txid string) string {
	account := tlv("00", "br.gov.bcb.pix") + tlv("01", pixKey)
	ref := sanitize(txid, 25)
	if ref == "" {
		ref = "***"
	}

	var b strings.Builder
	b.WriteString(tlv("00", "01"))
	b.WriteString(tlv("26", account))
	b.WriteString(tlv("52", "0000"))
	b.WriteString(tlv("53", "986"))
	b.WriteString(tlv("54", amount))
	b.WriteString(tlv("58", "BR"))
	b.WriteString(tlv("59", sanitize(merchantName, 25)))
	b.WriteString(tlv("60", sanitize(merchantCity, 15)))
	b.WriteString(tlv("62", tlv("05", ref)))
	b.WriteString("6304")
	payload := b.String()
	return payload + fmt.Sprintf("%04X", crc16(payload))
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func sanitize(s string, max int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// crc16 is CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func crc16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
