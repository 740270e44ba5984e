package presenter

import "strings"

// Category 仪表盘上的分类标签
type Category struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

var Categories = []Category{
	{Label: "జాతీయ వార్తలు", Name: "National"},
	{Label: "రాష్ట్ర వార్తలు", Name: "State"},
	{Label: "క్రైం", Name: "Crime"},
	{Label: "రాజకీయాలు", Name: "Politics"},
	{Label: "వ్యాపారం", Name: "Business"},
	{Label: "క్రీడలు", Name: "Sports"},
	{Label: "వినోదం", Name: "Entertainment"},
	{Label: "ఉద్యోగాలు", Name: "Jobs"},
	{Label: "వాతావరణం", Name: "Weather"},
	{Label: "వైరల్", Name: "Viral"},
}

// LookupCategory 接受英文名或泰卢固文标签，返回英文名
func LookupCategory(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(c.Name, s) || c.Label == s {
			return c.Name, true
		}
	}
	return "", false
}
