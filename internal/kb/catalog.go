package kb

// PoaType is the top-level category of a Plan of Action.
type PoaType string

const (
	PoaAccountSuspension     PoaType = "ACCOUNT_SUSPENSION"
	PoaFulfillmentSuspension PoaType = "FULFILLMENT_SUSPENSION"
	PoaOther                 PoaType = "OTHER"
)

var poaLabels = map[PoaType]string{
	PoaAccountSuspension:     "店铺账户暂停 (Account Suspension)",
	PoaFulfillmentSuspension: "自发货权限暂停 (Fulfillment Suspension)",
	PoaOther:                 "其他问题",
}

// Subtype labels, shared by the classifier and the catalog.
const (
	SubAccountOTD           = "OTD (发货及时率低) - 导致封店"
	SubAccountVTR           = "VTR (物流追踪率低) - 导致封店"
	SubAccountCancel        = "取消率过高 - 导致封店"
	SubAccountRefund        = "退款率过高 - 导致封店"
	SubIPTrademark          = "知识产权 - 商标侵权 (Trademark)"
	SubIPCopyright          = "知识产权 - 版权侵权 (Copyright)"
	SubIPPatent             = "知识产权 - 专利侵权 (Patent)"
	SubIPCounterfeit        = "知识产权 - 假冒商品 (Counterfeit)"
	SubReviewManipulation   = "操控评论 (Review Manipulation)"
	SubCustomerFraud        = "客户欺诈投诉 (Customer Fraud Complaint)"
	SubIdentityVerification = "二审/身份验证 (Identity Verification)"
	SubProhibitedItems      = "违反销售政策 (Prohibited Items)"
	SubRelatedAccounts      = "关联账户 (Related Accounts)"
	SubAccountOther         = "其他 - 导致封店"
	SubFulfillmentOTD       = "OTD (发货及时率低) - 暂停自发货"
	SubFulfillmentVTR       = "VTR (物流追踪率低) - 暂停自发货"
	SubFulfillmentCancel    = "取消率过高 - 暂停自发货"
	SubReturnAddress        = "退货地址验证"
	SubFundsHold            = "资金冻结申诉"
	SubOtherNonAccount      = "其他非账号问题"
)

var poaOrder = []PoaType{PoaAccountSuspension, PoaFulfillmentSuspension, PoaOther}

var poaSubTypes = map[PoaType][]string{
	PoaAccountSuspension: {
		SubAccountOTD, SubAccountVTR, SubAccountCancel, SubAccountRefund,
		SubIPTrademark, SubIPCopyright, SubIPPatent, SubIPCounterfeit,
		SubReviewManipulation, SubCustomerFraud, SubIdentityVerification,
		SubProhibitedItems, SubRelatedAccounts, SubAccountOther,
	},
	PoaFulfillmentSuspension: {SubFulfillmentOTD, SubFulfillmentVTR, SubFulfillmentCancel},
	PoaOther:                 {SubReturnAddress, SubFundsHold, SubOtherNonAccount},
}

// Valid reports whether t is a catalog type.
func (t PoaType) Valid() bool {
	_, ok := poaLabels[t]
	return ok
}

// Label returns the display label, or the raw value for unknown types.
func (t PoaType) Label() string {
	if label, ok := poaLabels[t]; ok {
		return label
	}
	return string(t)
}

// SubTypes returns a copy of the subtypes of t.
func SubTypes(t PoaType) []string {
	return append([]string(nil), poaSubTypes[t]...)
}

// HasSubType reports whether sub belongs to t.
func HasSubType(t PoaType, sub string) bool {
	for _, candidate := range poaSubTypes[t] {
		if candidate == sub {
			return true
		}
	}
	return false
}

// CatalogEntry is one type with its subtypes.
type CatalogEntry struct {
	Type     PoaType  `json:"type"`
	Label    string   `json:"label"`
	SubTypes []string `json:"sub_types"`
}

// Catalog lists every type in display order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(poaOrder))
	for _, t := range poaOrder {
		out = append(out, CatalogEntry{Type: t, Label: t.Label(), SubTypes: SubTypes(t)})
	}
	return out
}
