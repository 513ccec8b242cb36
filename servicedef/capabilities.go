package servicedef

// Capabilities describe which parts of the HTTP surface a proxy offers. The agent-run and
// Assistants capabilities are detected by probing; chat completions must be declared.
const (
	CapabilityADK             = "adk"
	CapabilityAssistants      = "assistants"
	CapabilityChatCompletions = "chat-completions"
)

// ProbedCapabilities are the capabilities the harness can detect on its own. A run expects
// the proxy to have them unless told otherwise.
var ProbedCapabilities = []string{CapabilityADK, CapabilityAssistants}
