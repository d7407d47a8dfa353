package dashboard

import "insights/internal/core"

// Kind is how a block is presented.
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindTable   Kind = "table"
	KindHeatmap Kind = "heatmap"
	KindPie     Kind = "pie"
)

// Aggregation names which analytics function feeds a block.
type Aggregation string

const (
	AggCategorical Aggregation = "categorical"
	AggTemporal    Aggregation = "temporal"
	AggCrossTab    Aggregation = "crosstab"
	AggFlags       Aggregation = "flags"
)

// Spec is the fixed description of one dashboard block.
type Spec struct {
	ID          string
	Title       string
	Kind        Kind
	Aggregation Aggregation
	// Columns holds one column, or row then column for a crosstab.
	Columns    []string
	XLabel     string
	YLabel     string
	Colors     []string
	Annotation string
	// Rotate turns x tick labels vertical.
	Rotate bool
}

// Block IDs, also used in chart URLs.
const (
	BlockReportType           = "report-type"
	BlockCreatedOverTime      = "created-over-time"
	BlockUserActivity         = "user-activity"
	BlockWorkspaceReportTypes = "workspace-report-types"
	BlockUserReportTypes      = "user-report-types"
	BlockWorkspaceUsage       = "workspace-usage"
	BlockStorage              = "storage"
	BlockDomain               = "domain"
)

// Colours are hex RGB without the leading '#'.
const (
	ColorSkyBlue      = "87CEEB"
	ColorCoral        = "FF7F50"
	ColorSalmon       = "FA8072"
	ColorLightGreen   = "90EE90"
	ColorLightCoral   = "F08080"
	ColorLightSkyBlue = "87CEFA"
)

// specs lists the blocks in display order.
var specs = []Spec{
	{
		ID:          BlockReportType,
		Title:       "Report Type Distribution",
		Kind:        KindBar,
		Aggregation: AggCategorical,
		Columns:     []string{core.ColumnReportType},
		XLabel:      "Report Type",
		YLabel:      "Count",
		Colors:      []string{ColorSkyBlue},
		Annotation: "The distribution of reports by type shows the most common types of reports created in the system. " +
			"It helps to identify that PowerBI Reports most frequently created by users.",
	},
	{
		ID:          BlockCreatedOverTime,
		Title:       "Reports Created Over Time",
		Kind:        KindLine,
		Aggregation: AggTemporal,
		Columns:     []string{core.ColumnMonthCreated},
		XLabel:      "Month",
		YLabel:      "Number of Reports",
		Colors:      []string{ColorCoral},
		Rotate:      true,
		Annotation: "The temporal trend shows how the number of reports created varies over time. " +
			"This can help in understanding the trends and seasonal patterns in report creation, " +
			"which might be tied to specific events or activities. " +
			"Here maximum report are created in August 2022 and July 2023.",
	},
	{
		ID:          BlockUserActivity,
		Title:       "User Activity - Frequency of Report Modifications",
		Kind:        KindBar,
		Aggregation: AggCategorical,
		Columns:     []string{core.ColumnModifiedBy},
		XLabel:      "User",
		YLabel:      "Number of Reports Modified",
		Colors:      []string{ColorSalmon},
		Rotate:      true,
		Annotation: "The frequency of report modifications by each user highlights how active users are in modifying reports. " +
			"It can help identify users who are most engaged with the report modification process. " +
			"Most of the reports are modified by unknown user who user ID is not mentioned.",
	},
	{
		ID:          BlockWorkspaceReportTypes,
		Title:       "Report Type Distribution Across Workspaces",
		Kind:        KindTable,
		Aggregation: AggCrossTab,
		Columns:     []string{core.ColumnWorkspaceName, core.ColumnReportType},
		Annotation: "The report type distribution across workspaces gives a detailed look at how different workspaces generate " +
			"various types of reports. This can provide insights into workspace-specific reporting trends.",
	},
	{
		ID:          BlockUserReportTypes,
		Title:       "Report Type Distribution Across Users (Heatmap)",
		Kind:        KindHeatmap,
		Aggregation: AggCrossTab,
		Columns:     []string{core.ColumnModifiedBy, core.ColumnReportType},
		YLabel:      "Number of Reports",
		Annotation: "The heatmap shows how users interact with different report types. It helps in understanding which users are " +
			"modifying particular types of reports and can provide insight into user preferences and engagement with report types.",
	},
	{
		ID:          BlockWorkspaceUsage,
		Title:       "Workspace Usage - Number of Reports per Workspace",
		Kind:        KindBar,
		Aggregation: AggCategorical,
		Columns:     []string{core.ColumnWorkspaceName},
		XLabel:      "Workspace",
		YLabel:      "Number of Reports",
		Colors:      []string{ColorSkyBlue},
		Rotate:      true,
		Annotation: "This analysis helps in understanding the number of reports generated across different workspaces. " +
			"It could highlight which workspaces are more active or have a higher number of reports generated. " +
			"Transportation has the highest number of reports.",
	},
	{
		ID:          BlockStorage,
		Title:       "Storage Distribution - Dedicated Capacity vs General Storage",
		Kind:        KindPie,
		Aggregation: AggFlags,
		Columns:     []string{core.ColumnIsOnDedicatedCapacity},
		Colors:      []string{ColorLightCoral, ColorLightSkyBlue},
		Annotation: "This pie chart shows the proportion of reports stored on dedicated capacity vs general storage. " +
			"It helps understand how the reports are distributed in terms of storage infrastructure.",
	},
	{
		ID:          BlockDomain,
		Title:       "Report Distribution per Domain",
		Kind:        KindBar,
		Aggregation: AggCategorical,
		Columns:     []string{core.ColumnDomainID},
		XLabel:      "Domain ID",
		YLabel:      "Count",
		Colors:      []string{ColorLightGreen},
		Annotation: "The report distribution across domains indicates the areas or categories where most reports are being generated. " +
			"We can see that maximum domain is unknown which can be concerning to know the exact user of it.",
	},
}

// All returns the block specs in display order. The result is a copy.
func All() []Spec {
	out := make([]Spec, len(specs))
	for i, s := range specs {
		out[i] = s.clone()
	}
	return out
}

// SpecByID finds a block spec.
func SpecByID(id string) (Spec, bool) {
	for _, s := range specs {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Spec{}, false
}

func (s Spec) clone() Spec {
	s.Columns = append([]string(nil), s.Columns...)
	s.Colors = append([]string(nil), s.Colors...)
	return s
}

// HasChart reports whether the block is drawn as an SVG chart.
func (s Spec) HasChart() bool {
	switch s.Kind {
	case KindBar, KindLine, KindPie:
		return true
	}
	return false
}
