package boundary

import (
	"fmt"
	"strings"
)

// humanTable renders the minimal plain-text summary (Supplemented
// Feature 5) shown only behind an explicit --human flag; the JSON
// envelope remains the unconditional, spec-mandated output (spec.md §6).
// This is not the excluded "table/list formatter" feature — it is the
// smallest ambient affordance for local debugging, with no column
// alignment, paging, or filtering beyond a fixed field order.
func humanTable(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(headers, "\t"))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

// HumanGetAvailableTemplates renders GetAvailableTemplatesOutput as a
// plain-text table.
func HumanGetAvailableTemplates(out GetAvailableTemplatesOutput) string {
	rows := make([][]string, 0, len(out.Templates))
	for _, t := range out.Templates {
		rows = append(rows, []string{t.TemplateID, t.Strategy, t.ImageID, fmt.Sprintf("%d", t.MaxNumber)})
	}
	return humanTable([]string{"TEMPLATE", "STRATEGY", "IMAGE", "MAX"}, rows)
}

// HumanRequestMachines renders RequestMachinesOutput as plain text.
func HumanRequestMachines(out RequestMachinesOutput) string {
	return fmt.Sprintf("requestId=%s message=%q\n", out.RequestID, out.Message)
}

// HumanRequestReturnMachines renders RequestReturnMachinesOutput as plain
// text.
func HumanRequestReturnMachines(out RequestReturnMachinesOutput) string {
	if out.RequestID == nil {
		return "requestId=<none>\n"
	}
	return fmt.Sprintf("requestId=%s\n", *out.RequestID)
}

// HumanGetRequestStatus renders GetRequestStatusOutput as a plain-text
// table, one row per machine across every returned request.
func HumanGetRequestStatus(out GetRequestStatusOutput) string {
	var rows [][]string
	for _, req := range out.Requests {
		if len(req.Machines) == 0 {
			rows = append(rows, []string{req.RequestID, req.Status, "-", "-", "-"})
			continue
		}
		for _, m := range req.Machines {
			rows = append(rows, []string{req.RequestID, req.Status, m.MachineID, m.Status, m.Result})
		}
	}
	table := humanTable([]string{"REQUEST", "STATUS", "MACHINE", "MACHINE_STATUS", "RESULT"}, rows)
	if len(out.Errors) == 0 {
		return table
	}
	var b strings.Builder
	b.WriteString(table)
	b.WriteString("\nerrors:\n")
	for _, e := range out.Errors {
		b.WriteString(fmt.Sprintf("  %s: %s: %s\n", e.RequestID, e.Error, e.Message))
	}
	return b.String()
}

// HumanGetReturnRequests renders GetReturnRequestsOutput as a plain-text
// table.
func HumanGetReturnRequests(out GetReturnRequestsOutput) string {
	rows := make([][]string, 0, len(out.Requests))
	for _, r := range out.Requests {
		rows = append(rows, []string{r.RequestID, r.Status, fmt.Sprintf("%d", len(r.MachineIDs)), fmt.Sprintf("%ds", r.GracePeriodSeconds)})
	}
	return humanTable([]string{"REQUEST", "STATUS", "MACHINES", "GRACE"}, rows)
}
