package adserve

import "fmt"

// Result is either Success or Failure.
type Result interface {
	isResult()
}

// Success carries a placement ready to render.
type Success struct {
	Placement Placement
}

// Failure carries the status the network reported, or ERROR_IN_FETCH.
type Failure struct {
	StatusCode string
	Message    string
}

func (Success) isResult() {}
func (Failure) isResult() {}

// Classify turns a raw payload into a Result. Only the literal status
// "SUCCESS" with a placement_1 yields Success.
func Classify(resp Response) Result {
	switch resp.Status {
	case StatusSuccess:
	case StatusFetchError:
		return Failure{StatusCode: resp.Status, Message: messageString(resp.Message)}
	default:
		// Network-reported statuses carry no message downstream.
		return Failure{StatusCode: resp.Status}
	}
	if resp.Placements == nil || resp.Placements.Placement1 == nil {
		return Failure{StatusCode: resp.Status, Message: "missing placement_1"}
	}
	return Success{Placement: *resp.Placements.Placement1}
}

func messageString(m any) string {
	switch v := m.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
