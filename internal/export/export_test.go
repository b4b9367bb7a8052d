package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/zeyuan/appeal-service/internal/models"
)

func TestAppealsCSV(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	appeals := []models.Appeal{{
		ID:              "a1",
		CreatedAt:       time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC),
		Username:        "alice",
		AccountType:     "紫鸟",
		EmailAccount:    "shop@mail.com",
		EmailPass:       "p,w",
		LoginInfo:       `user "x"`,
		Status:          models.AppealPassed,
		DeductionAmount: 50,
		AdminNotes:      "",
	}}
	var buf bytes.Buffer
	if errCSV := AppealsCSV(&buf, appeals, shanghai); errCSV != nil {
		t.Fatalf("AppealsCSV: %v", errCSV)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff工单ID,提交时间,客户,账号类型,店铺邮箱,邮箱密码,登录信息,状态,扣费金额,管理员备注\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	want := `a1,2026-03-02 00:30:00,alice,紫鸟,shop@mail.com,"p,w","user ""x""",PASSED,50,""`
	if lines := strings.Split(out, "\n"); len(lines) != 2 || lines[1] != want {
		t.Fatalf("unexpected rows %q, want %q", lines, want)
	}
}

func TestWordDocument(t *testing.T) {
	doc := WordDocument("**Root Cause** <1>\n* first\n- second\nplain & done")
	if !strings.HasPrefix(doc, wordHeader) || !strings.HasSuffix(doc, "</div></body></html>") {
		t.Fatalf("missing wrapper: %q", doc)
	}
	want := "<b>Root Cause</b> &lt;1&gt;<br/>• first<br/>• second<br/>plain &amp; done"
	if !strings.Contains(doc, wordBodyDiv+want+"</div>") {
		t.Fatalf("unexpected body: %q", doc)
	}
}

func TestFilenames(t *testing.T) {
	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if got := WordFilename(" ", now); got != "POA_Draft_2026-03-05.doc" {
		t.Fatalf("unexpected %q", got)
	}
	if got := WordFilename("Sunny", now); got != "POA_Sunny_2026-03-05.doc" {
		t.Fatalf("unexpected %q", got)
	}
	if got := AppealsFilename(now); got != "申诉记录导出_2026-03-05.csv" {
		t.Fatalf("unexpected %q", got)
	}
	disp := ContentDisposition("申诉_a.csv")
	if !strings.Contains(disp, `filename="___a.csv"`) || !strings.Contains(disp, "filename*=UTF-8''%E7%94%B3") {
		t.Fatalf("unexpected disposition %q", disp)
	}
}
