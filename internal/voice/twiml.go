// Package voice implements the call flow: TwiML rendering and the
// per-call controller driving the session state machine.
package voice

import (
	"encoding/xml"
	"fmt"
)

// Response is a TwiML <Response> document sent back to the telephony provider.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// Say speaks text to the caller.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

// Gather collects speech or digits from the caller.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	NumDigits     int      `xml:"numDigits,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`
	Verbs         []any
}

// Redirect hands the call to another webhook step.
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

// Dial connects the caller to an external number.
type Dial struct {
	XMLName xml.Name `xml:"Dial"`
	Number  string   `xml:",chardata"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Say appends a spoken prompt.
func (r *Response) Say(text string) *Response {
	r.Verbs = append(r.Verbs, Say{Text: text})
	return r
}

// Gather appends a gather verb.
func (r *Response) Gather(g Gather) *Response {
	r.Verbs = append(r.Verbs, g)
	return r
}

// SayInGather appends a spoken prompt inside a gather.
func (g *Gather) Say(text string) *Gather {
	g.Verbs = append(g.Verbs, Say{Text: text})
	return g
}

// Redirect appends a redirect to another step.
func (r *Response) Redirect(url string) *Response {
	r.Verbs = append(r.Verbs, Redirect{Method: "POST", URL: url})
	return r
}

// Dial appends a dial-out to an external number.
func (r *Response) Dial(number string) *Response {
	r.Verbs = append(r.Verbs, Dial{Number: number})
	return r
}

// Hangup appends a hangup verb.
func (r *Response) Hangup() *Response {
	r.Verbs = append(r.Verbs, Hangup{})
	return r
}

// Render serializes the response as a TwiML XML document.
func (r *Response) Render() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("render twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
