package ui

import (
	"strings"
	"unicode/utf8"
)

// Tree hierarchy symbols using box drawing characters
const (
	TreeBranch     = "├── "
	TreeLastBranch = "└── "
	TreeContinue   = "│   " // parent has more siblings
	TreeIndent     = "    " // parent was last

	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// BuildTreePrefix returns the connector for a node at depth. parentIsLast
// holds, per ancestor level below the root, whether that ancestor was the
// last of its siblings.
func BuildTreePrefix(depth int, isLast bool, parentIsLast []bool) string {
	if depth == 0 {
		return ""
	}

	var prefix strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(parentIsLast) && parentIsLast[i] {
			prefix.WriteString(TreeIndent)
		} else {
			prefix.WriteString(TreeContinue)
		}
	}
	if isLast {
		prefix.WriteString(TreeLastBranch)
	} else {
		prefix.WriteString(TreeBranch)
	}
	return prefix.String()
}

// BuildBoxHeader creates a box header with the given title and width
func BuildBoxHeader(title string, width int) string {
	titleLen := utf8.RuneCountInString(title)
	if width < titleLen+4 {
		width = titleLen + 4
	}
	padding := width - 4 - titleLen

	return BoxTopLeft + strings.Repeat(BoxHorizontal, width-2) + BoxTopRight + "\n" +
		BoxVertical + " " + title + strings.Repeat(" ", padding+1) + BoxVertical + "\n" +
		BoxTeeRight + strings.Repeat(BoxHorizontal, width-2) + BoxTeeLeft + "\n"
}

// BuildBoxLine creates a content line within a box, truncating long content.
func BuildBoxLine(content string, width int) string {
	maxContentLen := width - 4
	if maxContentLen < 4 {
		maxContentLen = 4
		width = 8
	}
	contentLen := utf8.RuneCountInString(content)
	if contentLen > maxContentLen {
		runes := []rune(content)
		content = string(runes[:maxContentLen-3]) + "..."
		contentLen = maxContentLen
	}
	padding := maxContentLen - contentLen
	return BoxVertical + " " + content + strings.Repeat(" ", padding+1) + BoxVertical + "\n"
}

// BuildBoxFooter creates a box footer with the given width
func BuildBoxFooter(width int) string {
	if width < 2 {
		width = 2
	}
	return BoxBottomLeft + strings.Repeat(BoxHorizontal, width-2) + BoxBottomRight + "\n"
}
