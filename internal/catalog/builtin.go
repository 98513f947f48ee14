package catalog

import "github.com/ahrav/terrabench/internal/domain"

// PlatformContext is the system message seeded into every conversation.
// It pins the model to the Xen Orchestra / XCP-NG platform the generated
// Terraform must target.
const PlatformContext = `You are an expert Terraform infrastructure engineer working with Xen Orchestra / XCP-NG.

Platform Details:
- XO WebSocket: ws://localhost:8080
- XO user: admin@admin.net
- XO password: admin
- Pool: DAO-Agentic-Infra
- Network: Pool-wide network associated with eth0
- Disk SR: Local storage
- Installer template: Other install media
- ISO name: ubuntu-22.04.5-live-server-amd64.iso
- ISO UUID: 286a9f23-133c-4cdf-a247-4de9ef4b17e9
- ISO SR: ISO Library

Terraform Provider:
- Provider: xenorchestra
- Source: terra-farm/xenorchestra
- Version: ~> 0.26.0

Server Resources:
- Total RAM: 24GB
- Total CPU: 32 cores
- Available RAM before task: 20GB (approximately)

Please generate working Terraform code that uses the above platform details. Be specific and production-ready.`

// BuildPrompt composes the initial user prompt for a task.
func BuildPrompt(task domain.TaskDefinition) string {
	return "Task: " + task.Prompt
}

// Builtin returns the catalog of VM provisioning tasks in execution order.
// The declaration order already respects every dependency edge, so a full
// run executes tasks exactly in this sequence.
func Builtin() *Catalog {
	c, err := New(builtinTasks)
	if err != nil {
		// The built-in set is validated by tests; a bad definition is a
		// programming error.
		panic(err)
	}
	return c
}

var builtinTasks = []domain.TaskDefinition{
	{
		ID:           "C1.2",
		Description:  "Single VM with 2GB RAM - Little Context",
		Prompt:       "Create an Ubuntu VM with 2GB RAM",
		PromptKind:   domain.PromptLittleContext,
		Operation:    domain.OpCreate,
		CleanupAfter: true,
		StateBefore:  "clean_server_0_vms",
		Expected:     domain.TaskExpectations{VMCount: 1, RAMGB: 2},
	},
	{
		ID:          "C1.3",
		Description: "Single VM - Detailed Prompt",
		Prompt: "Create an Ubuntu 22.04 VM named 'app-01' with 2 vCPU, 4GB RAM, 50GB disk on " +
			"'local-storage', connected to 'xenbr0' with DHCP.",
		PromptKind: domain.PromptDetailed,
		Operation:  domain.OpCreate,
		// Kept alive for U1.2.
		CleanupAfter: false,
		StateBefore:  "clean_server_0_vms",
		Expected:     domain.TaskExpectations{VMCount: 1, RAMGB: 4, CPUs: 2, DiskGB: 50},
	},
	{
		ID:           "U1.2",
		Description:  "Increase RAM - Little Context",
		Prompt:       "Increase the RAM of the 'app-01' VM to 6GB",
		PromptKind:   domain.PromptLittleContext,
		Operation:    domain.OpUpdate,
		DependsOn:    []string{"C1.3"},
		CleanupAfter: false,
		StateBefore:  "app_01_exists_4gb",
		Expected:     domain.TaskExpectations{VMCount: 1, RAMGB: 6},
		Traits:       domain.TaskTraits{Update: true},
	},
	{
		ID:           "D1.2",
		Description:  "Delete Single VM - Little Context",
		Prompt:       "Remove the 'app-01' VM from the infrastructure",
		PromptKind:   domain.PromptLittleContext,
		Operation:    domain.OpDelete,
		DependsOn:    []string{"U1.2"},
		CleanupAfter: true,
		StateBefore:  "app_01_exists",
		Expected:     domain.TaskExpectations{VMCount: 0},
	},
	{
		ID:           "C2.2",
		Description:  "Multiple Identical VMs - Little Context",
		Prompt:       "Create 3 Ubuntu VMs, each with 2GB RAM",
		PromptKind:   domain.PromptLittleContext,
		Operation:    domain.OpCreate,
		CleanupAfter: true,
		StateBefore:  "clean_server_0_vms",
		Expected:     domain.TaskExpectations{VMCount: 3, RAMGB: 6},
	},
	{
		ID:          "C2.3",
		Description: "Multiple Identical VMs - Detailed + Idempotency",
		Prompt: "Create 3 Ubuntu 22.04 VMs named 'web-01', 'web-02', 'web-03', each with 2 vCPU, " +
			"4GB RAM, and 50GB disk, on 'local-storage', connected to 'xenbr0' with DHCP.",
		PromptKind: domain.PromptDetailed,
		Operation:  domain.OpCreate,
		// Kept alive for R1.2 and D2.2.
		CleanupAfter: false,
		StateBefore:  "clean_server_0_vms",
		Expected:     domain.TaskExpectations{VMCount: 3, RAMGB: 12, CPUs: 2, DiskGB: 50},
		Traits:       domain.TaskTraits{IdempotencyTest: true},
	},
	{
		ID:           "R1.2",
		Description:  "List Existing VMs - Little Context",
		Prompt:       "List all existing VMs and their RAM allocation",
		PromptKind:   domain.PromptLittleContext,
		Operation:    domain.OpRead,
		DependsOn:    []string{"C2.3"},
		CleanupAfter: false,
		StateBefore:  "3_vms_from_c2_3",
		Expected:     domain.TaskExpectations{VMCount: 3},
	},
	{
		ID:          "C4.2",
		Description: "Incremental VM Addition - Little Context",
		Prompt: "Add a new Ubuntu VM named 'web-04' with 2 vCPU and 4GB RAM to the existing " +
			"infrastructure (keep existing VMs unchanged)",
		PromptKind:   domain.PromptLittleContext,
		Operation:    domain.OpCreate,
		DependsOn:    []string{"C2.3"},
		CleanupAfter: true,
		StateBefore:  "3_vms_exist",
		Expected:     domain.TaskExpectations{VMCount: 4},
		Traits:       domain.TaskTraits{Incremental: true},
	},
	{
		ID:           "D2.2",
		Description:  "Delete Multiple VMs - Little Context",
		Prompt:       "Remove 'web-02' and 'web-03' VMs from the infrastructure",
		PromptKind:   domain.PromptLittleContext,
		Operation:    domain.OpDelete,
		DependsOn:    []string{"R1.2"},
		CleanupAfter: true,
		StateBefore:  "3_vms_exist",
		Expected:     domain.TaskExpectations{VMCount: 1},
	},
	{
		ID:           "C5.2",
		Description:  "Over-Provisioning Edge Case",
		Prompt:       "Attempt to create 10 Ubuntu VMs, each with 3GB RAM",
		PromptKind:   domain.PromptLittleContext,
		Operation:    domain.OpCreate,
		CleanupAfter: true,
		StateBefore:  "clean_server_0_vms",
		Expected:     domain.TaskExpectations{VMCount: 0},
		Traits:       domain.TaskTraits{EdgeCase: true},
	},
}
