package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanRenderersProduceNonEmptyOutput(t *testing.T) {
	templates := HumanGetAvailableTemplates(GetAvailableTemplatesOutput{
		Templates: []TemplateView{{TemplateID: "small-ondemand", Strategy: "DirectLaunch", ImageID: "ami-1", MaxNumber: 5}},
	})
	assert.Contains(t, templates, "small-ondemand")

	requested := HumanRequestMachines(RequestMachinesOutput{RequestID: "req-1", Message: "Request accepted"})
	assert.Contains(t, requested, "req-1")

	id := "req-2"
	returned := HumanRequestReturnMachines(RequestReturnMachinesOutput{RequestID: &id})
	assert.Contains(t, returned, "req-2")

	noneReturned := HumanRequestReturnMachines(RequestReturnMachinesOutput{})
	assert.Contains(t, noneReturned, "<none>")

	status := HumanGetRequestStatus(GetRequestStatusOutput{
		Requests: []RequestStatusView{{
			RequestID: "req-1",
			Status:    "Complete",
			Machines:  []MachineStatusView{{MachineID: "m-1", Status: "Running", Result: "succeed"}},
		}},
		Errors: []RequestStatusError{{RequestID: "req-3", Error: "RequestNotFoundError", Message: "not found"}},
	})
	assert.Contains(t, status, "m-1")
	assert.Contains(t, status, "req-3")

	returns := HumanGetReturnRequests(GetReturnRequestsOutput{
		Requests: []ReturnRequestView{{RequestID: "req-4", Status: "Pending", MachineIDs: []string{"m-1"}, GracePeriodSeconds: 300}},
	})
	assert.Contains(t, returns, "req-4")
}
