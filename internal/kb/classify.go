package kb

import (
	"path/filepath"
	"strings"
)

// Category is a classified type and subtype.
type Category struct {
	Type    PoaType `json:"type"`
	SubType string  `json:"sub_type"`
}

type rule struct {
	keywords []string
	resolve  func(name string) Category
}

func fixed(t PoaType, sub string) func(string) Category {
	return func(string) Category { return Category{Type: t, SubType: sub} }
}

// rules are evaluated in order; the first whose keywords match wins.
var rules = []rule{
	{
		keywords: []string{"自发货", "fulfillment", "permission"},
		resolve: func(name string) Category {
			switch {
			case containsAny(name, "otd", "late", "迟发"):
				return Category{Type: PoaFulfillmentSuspension, SubType: SubFulfillmentOTD}
			case containsAny(name, "vtr", "tracking", "追踪"):
				return Category{Type: PoaFulfillmentSuspension, SubType: SubFulfillmentVTR}
			}
			return Category{Type: PoaFulfillmentSuspension, SubType: poaSubTypes[PoaFulfillmentSuspension][0]}
		},
	},
	{keywords: []string{"otd", "发货及时", "late shipment"}, resolve: fixed(PoaAccountSuspension, SubAccountOTD)},
	{keywords: []string{"vtr", "追踪", "valid tracking"}, resolve: fixed(PoaAccountSuspension, SubAccountVTR)},
	{keywords: []string{"cancel", "取消率"}, resolve: fixed(PoaAccountSuspension, SubAccountCancel)},
	{
		keywords: []string{"ip", "infringement", "侵权", "rights", "counterfeit", "假冒"},
		resolve: func(name string) Category {
			switch {
			case containsAny(name, "trademark", "商标"):
				return Category{Type: PoaAccountSuspension, SubType: SubIPTrademark}
			case containsAny(name, "patent", "专利"):
				return Category{Type: PoaAccountSuspension, SubType: SubIPPatent}
			case containsAny(name, "copyright", "版权"):
				return Category{Type: PoaAccountSuspension, SubType: SubIPCopyright}
			}
			return Category{Type: PoaAccountSuspension, SubType: SubIPCounterfeit}
		},
	},
	{keywords: []string{"linked", "related", "关联"}, resolve: fixed(PoaAccountSuspension, SubRelatedAccounts)},
	{keywords: []string{"review", "manipulation", "评论", "刷单"}, resolve: fixed(PoaAccountSuspension, SubReviewManipulation)},
	{keywords: []string{"verify", "identity", "身份", "二审"}, resolve: fixed(PoaAccountSuspension, SubIdentityVerification)},
	{keywords: []string{"fraud", "欺诈"}, resolve: fixed(PoaAccountSuspension, SubCustomerFraud)},
}

// Classify guesses the category of a reference letter from its file name.
// It returns nil when no rule matches.
func Classify(filename string) *Category {
	name := strings.ToLower(filepath.Base(filename))
	for _, r := range rules {
		if containsAny(name, r.keywords...) {
			c := r.resolve(name)
			return &c
		}
	}
	return nil
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
