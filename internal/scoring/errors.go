package scoring

import "fmt"

// ContractViolation is a blocking data-contract failure raised by the
// validation gate during training, or surfaced for callers that want
// strict inference.
type ContractViolation struct {
	Message string
	Context string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("data contract violation (%s): %s", e.Context, e.Message)
}
