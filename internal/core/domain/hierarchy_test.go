package domain

import "testing"

func TestBuildHierarchy_EmptyDataset(t *testing.T) {
	tree := BuildHierarchy(nil)
	if len(tree) != 1 {
		t.Fatalf("expected only the macro node, got %d nodes", len(tree))
	}
	if tree[0].Name != "Macroeconomic Sectors" {
		t.Errorf("unexpected node %s", tree[0].Name)
	}
	if tree[0].Items[0].Name != "manufacturing_gdp" || tree[0].Items[0].Label != "Manufacturing (% GDP)" {
		t.Errorf("unexpected first sector %+v", tree[0].Items[0])
	}
}

func TestBuildHierarchy_SkipsSynthesizedColumns(t *testing.T) {
	ds := &Dataset{
		Records:      []Record{{District: "Maadi"}},
		ExtraColumns: []string{FieldVacancyRate},
		Synthesized:  []string{FieldFootTraffic, FieldCompetitorDensity},
	}

	tree := BuildHierarchy(ds)
	if len(tree) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(tree))
	}
	market := tree[0]
	if market.Name != "Market Indicators" || len(market.Items) != 2 {
		t.Fatalf("unexpected market node %+v", market)
	}
	if market.Items[1].Name != FieldVacancyRate {
		t.Errorf("expected vacancy item, got %s", market.Items[1].Name)
	}
	if tree[1].Name != "Macroeconomic Sectors" {
		t.Errorf("expected macro node last, got %s", tree[1].Name)
	}
}

func TestBuildHierarchy_FullDataset(t *testing.T) {
	ds := &Dataset{Records: []Record{{District: "Maadi"}}}

	tree := BuildHierarchy(ds)
	if len(tree) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(tree))
	}
	ops := tree[1]
	if ops.Name != "Operational Metrics" || len(ops.Items) != 2 {
		t.Fatalf("unexpected operational node %+v", ops)
	}
	ops.Items[0].Industries[0] = "changed"
	if operationalItems[0].item.Industries[0] != "Retail" {
		t.Error("expected industries to be copied")
	}
}
