package utils

import (
	"fmt"
	"strings"
)

// CleanCPF strips everything but digits from a CPF string.
func CleanCPF(cpf string) string {
	var b strings.Builder
	b.Grow(11)
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCPF renders an 11-digit CPF as XXX.XXX.XXX-XX. Input that is not
// 11 digits after cleaning is returned unchanged.
func FormatCPF(cpf string) string {
	digits := CleanCPF(cpf)
	if len(digits) != 11 {
		return cpf
	}
	return fmt.Sprintf("%s.%s.%s-%s", digits[0:3], digits[3:6], digits[6:9], digits[9:11])
}

// ValidateCPF checks the Brazilian CPF checksum. Formatting characters are
// ignored; repeated-digit sequences like 111.111.111-11 are rejected even
// though their checksum holds.
func ValidateCPF(cpf string) error {
	digits := CleanCPF(cpf)
	if len(digits) != 11 {
		return fmt.Errorf("CPF must have 11 digits, got %d", len(digits))
	}

	allEqual := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return fmt.Errorf("CPF with repeated digits is not valid")
	}

	if cpfDigit(digits, 9) != int(digits[9]-'0') {
		return fmt.Errorf("invalid CPF check digit")
	}
	if cpfDigit(digits, 10) != int(digits[10]-'0') {
		return fmt.Errorf("invalid CPF check digit")
	}
	return nil
}

// cpfDigit computes the check digit over the first n digits, weighted
// n+1 down to 2.
func cpfDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// MaskCPF hides all but the last four digits: ***.***.*XX-XX.
func MaskCPF(cpf string) string {
	digits := CleanCPF(cpf)
	if len(digits) != 11 {
		return cpf
	}
	return fmt.Sprintf("***.***.*%s-%s", digits[7:9], digits[9:11])
}

// MaskEmail keeps the first two characters of the local part and the full
// domain: ab***@example.com.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local := email[:at]
	keep := 2
	if len(local) < keep {
		keep = len(local)
	}
	return local[:keep] + "***" + email[at:]
}
