package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/hostbroker/internal/wiring"
	"github.com/cuemby/hostbroker/pkg/boundary"
)

var getAvailableTemplatesCmd = &cobra.Command{
	Use:   "getAvailableTemplates",
	Short: "List every known template",
	RunE: func(cmd *cobra.Command, args []string) error {
		long, _ := cmd.Flags().GetBool("long")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stack, err := wiring.Build(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}

		out, failure := stack.Boundary.GetAvailableTemplates(long)
		if failure != nil {
			writeFailure(failure)
			return nil
		}
		human := ""
		if humanMode(cmd) {
			human = boundary.HumanGetAvailableTemplates(out)
		}
		writeSuccess(out, human)
		return nil
	},
}

func init() {
	getAvailableTemplatesCmd.Flags().Bool("long", false, "Include resolved cloud-side details")
}

var requestMachinesCmd = &cobra.Command{
	Use:   "requestMachines",
	Short: "Request machines from a template (reads the input envelope on stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readEnvelope(os.Stdin)
		if err != nil {
			return err
		}
		if in.Template == nil {
			return fmt.Errorf(`input envelope must include "template": {"templateId", "machineCount"}`)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stack, err := wiring.Build(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}

		out, failure := stack.Boundary.RequestMachines(cmd.Context(), boundary.RequestMachinesInput{
			TemplateID:   in.Template.TemplateID,
			MachineCount: in.Template.MachineCount,
		})
		if failure != nil {
			writeFailure(failure)
			return nil
		}
		human := ""
		if humanMode(cmd) {
			human = boundary.HumanRequestMachines(out)
		}
		writeSuccess(out, human)
		return nil
	},
}

var requestReturnMachinesCmd = &cobra.Command{
	Use:   "requestReturnMachines",
	Short: "Return machines (reads the input envelope on stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readEnvelope(os.Stdin)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stack, err := wiring.Build(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}

		machineIDs := make([]string, 0, len(in.Machines))
		for _, m := range in.Machines {
			machineIDs = append(machineIDs, m.MachineID)
		}

		out, failure := stack.Boundary.RequestReturnMachines(cmd.Context(), boundary.RequestReturnMachinesInput{
			MachineIDs: machineIDs,
			All:        in.All,
		})
		if failure != nil {
			writeFailure(failure)
			return nil
		}
		human := ""
		if humanMode(cmd) {
			human = boundary.HumanRequestReturnMachines(out)
		}
		writeSuccess(out, human)
		return nil
	},
}

var getRequestStatusCmd = &cobra.Command{
	Use:   "getRequestStatus",
	Short: "Report status for one or more requests (reads the input envelope on stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readEnvelope(os.Stdin)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stack, err := wiring.Build(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}

		requestIDs := make([]string, 0, len(in.Requests))
		for _, r := range in.Requests {
			requestIDs = append(requestIDs, r.RequestID)
		}

		out, failure := stack.Boundary.GetRequestStatus(cmd.Context(), boundary.GetRequestStatusInput{
			RequestIDs: requestIDs,
			All:        in.All,
		})
		if failure != nil {
			writeFailure(failure)
			return nil
		}
		human := ""
		if humanMode(cmd) {
			human = boundary.HumanGetRequestStatus(out)
		}
		writeSuccess(out, human)
		return nil
	},
}

var getReturnRequestsCmd = &cobra.Command{
	Use:   "getReturnRequests",
	Short: "List every pending return request",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stack, err := wiring.Build(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}

		out, failure := stack.Boundary.GetReturnRequests()
		if failure != nil {
			writeFailure(failure)
			return nil
		}
		human := ""
		if humanMode(cmd) {
			human = boundary.HumanGetReturnRequests(out)
		}
		writeSuccess(out, human)
		return nil
	},
}
