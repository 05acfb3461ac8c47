package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/present"
)

func handleError(w io.Writer, err error) {
	styles := present.StderrStyles()
	format := "\n%s\n\n"

	var ferr flagParseError
	if errors.As(err, &ferr) {
		args := []any{
			fmt.Sprintf(
				"Check out %s %s",
				styles.InlineCode.Render("ztr -h"),
				styles.Comment.Render("for help."),
			),
			fmt.Sprintf(
				ferr.ReasonFormat(),
				styles.InlineCode.Render(ferr.Flag()),
			),
		}
		_, _ = fmt.Fprintf(w, format+"%s\n\n", args...)
		return
	}

	var zerr errs.Error
	if errors.As(err, &zerr) && zerr.Reason != "" {
		formatArgs := []any{styles.ErrPadding.Render(styles.ErrorHeader.String(), zerr.Reason)}
		if zerr.Err != nil && !errors.Is(zerr.Err, huh.ErrUserAborted) {
			format += "%s\n\n"
			formatArgs = append(formatArgs, styles.ErrPadding.Render(styles.ErrorDetails.Render(zerr.Err.Error())))
		}
		_, _ = fmt.Fprintf(w, format, formatArgs...)
		return
	}

	_, _ = fmt.Fprintf(w, format, styles.ErrPadding.Render(styles.ErrorDetails.Render(err.Error())))
}
