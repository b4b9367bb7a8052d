// Package export renders appeals and generated letters as downloadable files.
package export

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zeyuan/appeal-service/internal/models"
)

const (
	// CSVContentType is served with AppealsCSV output.
	CSVContentType = "text/csv; charset=utf-8"
	// WordContentType is served with WordDocument output.
	WordContentType = "application/msword; charset=utf-8"

	csvTimeLayout = "2006-01-02 15:04:05"
	fileDayLayout = "2006-01-02"
	utf8BOM       = "\ufeff"
)

var appealHeader = []string{"工单ID", "提交时间", "客户", "账号类型", "店铺邮箱", "邮箱密码", "登录信息", "状态", "扣费金额", "管理员备注"}

// AppealsCSV writes appeals as a BOM-prefixed CSV that spreadsheet apps open as UTF-8.
// Login info and admin notes are always quoted; times are rendered in loc.
func AppealsCSV(w io.Writer, appeals []models.Appeal, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	bw := bufio.NewWriter(w)
	if _, errWrite := bw.WriteString(utf8BOM); errWrite != nil {
		return fmt.Errorf("export: write bom: %w", errWrite)
	}
	header := make([]string, len(appealHeader))
	for i, h := range appealHeader {
		header[i] = csvField(h, false)
	}
	bw.WriteString(strings.Join(header, ","))
	for _, a := range appeals {
		row := []string{
			csvField(a.ID, false),
			csvField(a.CreatedAt.In(loc).Format(csvTimeLayout), false),
			csvField(a.Username, false),
			csvField(a.AccountType, false),
			csvField(a.EmailAccount, false),
			csvField(a.EmailPass, false),
			csvField(a.LoginInfo, true),
			csvField(string(a.Status), false),
			strconv.FormatFloat(a.DeductionAmount, 'f', -1, 64),
			csvField(a.AdminNotes, true),
		}
		bw.WriteByte('\n')
		bw.WriteString(strings.Join(row, ","))
	}
	if errFlush := bw.Flush(); errFlush != nil {
		return fmt.Errorf("export: write csv: %w", errFlush)
	}
	return nil
}

// csvField quotes s when forced or when it holds a separator, quote or line break.
func csvField(s string, force bool) string {
	if !force && !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// AppealsFilename names an export produced at now.
func AppealsFilename(now time.Time) string {
	return "申诉记录导出_" + now.Format(fileDayLayout) + ".csv"
}

const (
	wordHeader = "<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' " +
		"xmlns='http://www.w3.org/TR/REC-html40'><head><meta charset='utf-8'><title>POA Export</title></head><body>"
	wordFooter  = "</body></html>"
	wordBodyDiv = `<div style="font-family: Calibri, Arial, sans-serif; font-size: 11pt; white-space: pre-wrap;">`
)

var (
	boldMarkup   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	bulletMarkup = regexp.MustCompile(`(?m)^[*-] (.*)$`)
)

// WordDocument wraps markdown-ish letter text in HTML that Word opens as a document.
func WordDocument(text string) string {
	body := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(text)
	body = boldMarkup.ReplaceAllString(body, "<b>$1</b>")
	body = bulletMarkup.ReplaceAllString(body, "• $1")
	body = strings.ReplaceAll(body, "\n", "<br/>")
	return wordHeader + wordBodyDiv + body + "</div>" + wordFooter
}

// WordFilename names a letter export for store produced at now.
func WordFilename(store string, now time.Time) string {
	store = strings.TrimSpace(store)
	if store == "" {
		store = "Draft"
	}
	return "POA_" + store + "_" + now.Format(fileDayLayout) + ".doc"
}

// ContentDisposition builds an attachment header value that keeps non-ASCII names intact.
func ContentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, html.EscapeString(asciiFallback(filename)), pathEscape(filename))
}

func asciiFallback(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x80 && r != '"' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func pathEscape(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || strings.IndexByte("-._~", c) >= 0 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
