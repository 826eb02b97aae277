package terminal

import "strings"

// Box drawing characters.
const (
	BoxHeavyHorizontal  = "━"
	BoxHeavyVertical    = "┃"
	BoxHeavyTopLeft     = "┏"
	BoxHeavyTopRight    = "┓"
	BoxHeavyBottomLeft  = "┗"
	BoxHeavyBottomRight = "┛"
)

// HeaderPadding is the space between the border and header content.
const HeaderPadding = 1

// DrawHeader draws a heavy-bordered header with title on the left and
// rightText on the right. The box grows to fit its content.
//
//	┏━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┓
//	┃ Qodana            3 problems ┃
//	┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛
func DrawHeader(title, rightText string, width int) string {
	titleWidth, rightWidth := Width(title), Width(rightText)

	minRequired := titleWidth + rightWidth + 3 + HeaderPadding*2
	width = max(width, minRequired)

	inner := width - 2
	contentWidth := inner - HeaderPadding*2

	var content string

	if rightText == "" {
		content = PadRight(title, contentWidth)
	} else {
		gap := max(contentWidth-titleWidth-rightWidth, 1)
		content = title + strings.Repeat(" ", gap) + rightText
	}

	pad := strings.Repeat(" ", HeaderPadding)

	var b strings.Builder

	b.WriteString(BoxHeavyTopLeft + strings.Repeat(BoxHeavyHorizontal, inner) + BoxHeavyTopRight + "\n")
	b.WriteString(BoxHeavyVertical + pad + content + pad + BoxHeavyVertical + "\n")
	b.WriteString(BoxHeavyBottomLeft + strings.Repeat(BoxHeavyHorizontal, inner) + BoxHeavyBottomRight)

	return b.String()
}
