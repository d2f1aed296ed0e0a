// Package output renders CLI results as a JSON envelope:
// {"success": bool, "data": any, "error": string|null}.
package output

import "encoding/json"

type Result struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

func Success(data any) string {
	return render(Result{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func Error(err error) string {
	errMsg := err.Error()
	return render(Result{
		Success: false,
		Data:    nil,
		Error:   &errMsg,
	})
}

func render(r Result) string {
	b, err := json.Marshal(r)
	if err != nil {
		msg := "failed to encode result: " + err.Error()
		b, _ = json.Marshal(Result{Error: &msg})
	}
	return string(b)
}
