package utils

import (
	"fmt"
	"strconv"
)

// FormatINR renders an integer rupee amount with Indian digit grouping
// (last three digits, then pairs): 4500 -> "Rs 4,500", 150000 -> "Rs 1,50,000".
func FormatINR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%sRs %s", sign, groupIndian(amount))
}

func groupIndian(n int64) string {
	str := strconv.FormatInt(n, 10)
	if len(str) <= 3 {
		return str
	}
	head := str[:len(str)-3]
	out := str[len(str)-3:]
	for len(head) > 2 {
		out = head[len(head)-2:] + "," + out
		head = head[:len(head)-2]
	}
	return head + "," + out
}
