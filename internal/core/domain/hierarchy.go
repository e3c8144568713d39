package domain

// HierarchyItem is a selectable indicator in the data explorer tree.
type HierarchyItem struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Icon       string   `json:"icon"`
	Industries []string `json:"industries,omitempty"`
}

// HierarchyNode groups indicators under a heading.
type HierarchyNode struct {
	Name  string          `json:"name"`
	Icon  string          `json:"icon"`
	Items []HierarchyItem `json:"items"`
}

// Hierarchy column names beyond the canonical fields.
const FieldVacancyRate = "Vacancy_Rate"

type hierarchyEntry struct {
	column string
	item   HierarchyItem
}

var marketIndicatorItems = []hierarchyEntry{
	{FieldAvgRent, HierarchyItem{Name: FieldAvgRent, Label: "Avg Rent (EGP)", Icon: "DollarSign",
		Industries: []string{"Retail", "F&B", "Logistics", "Real Estate"}}},
	{FieldVacancyRate, HierarchyItem{Name: FieldVacancyRate, Label: "Vacancy Rate", Icon: "Activity",
		Industries: []string{"Real Estate", "Logistics"}}},
}

var operationalItems = []hierarchyEntry{
	{FieldFootTraffic, HierarchyItem{Name: FieldFootTraffic, Label: "Foot Traffic", Icon: "Users",
		Industries: []string{"Retail", "F&B"}}},
	{FieldCompetitorDensity, HierarchyItem{Name: FieldCompetitorDensity, Label: "Competitor Density", Icon: "Users",
		Industries: []string{"Retail", "F&B", "Healthcare"}}},
}

// sectorOrder is the display order of the macro sector node.
var sectorOrder = []string{"manufacturing_gdp", "agriculture_gdp", "services_gdp", "exports_gdp"}

// BuildHierarchy returns the explorer tree: micro groups for the columns the
// dataset really has, followed by the macroeconomic sectors node.
func BuildHierarchy(ds *Dataset) []HierarchyNode {
	var tree []HierarchyNode
	if ds.Len() > 0 {
		if items := availableItems(ds, marketIndicatorItems); len(items) > 0 {
			tree = append(tree, HierarchyNode{Name: "Market Indicators", Icon: "PieChart", Items: items})
		}
		if items := availableItems(ds, operationalItems); len(items) > 0 {
			tree = append(tree, HierarchyNode{Name: "Operational Metrics", Icon: "TrendingUp", Items: items})
		}
	}
	return append(tree, MacroSectorNode())
}

// MacroSectorNode lists the sector share-of-GDP indicators.
func MacroSectorNode() HierarchyNode {
	items := make([]HierarchyItem, 0, len(sectorOrder))
	for _, name := range sectorOrder {
		items = append(items, HierarchyItem{Name: name, Label: SectorLabel(name), Icon: "Activity"})
	}
	return HierarchyNode{Name: "Macroeconomic Sectors", Icon: "PieChart", Items: items}
}

func availableItems(ds *Dataset, entries []hierarchyEntry) []HierarchyItem {
	var items []HierarchyItem
	for _, e := range entries {
		if ds.HasColumn(e.column) {
			item := e.item
			item.Industries = append([]string(nil), e.item.Industries...)
			items = append(items, item)
		}
	}
	return items
}
