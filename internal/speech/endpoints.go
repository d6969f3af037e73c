package speech

import "fmt"

// EndpointFunc builds an upstream URL for a region.
type EndpointFunc func(region string) string

// Endpoints lists the upstream URLs the relay talks to. Token candidates are
// tried in order until one succeeds.
type Endpoints struct {
	Token     []EndpointFunc
	Synthesis EndpointFunc
}

// AzureEndpoints returns the public Azure Speech endpoints.
func AzureEndpoints() Endpoints {
	return Endpoints{
		Token: []EndpointFunc{
			func(region string) string {
				return fmt.Sprintf("https://%s.api.cognitive.microsoft.com/sts/v1.0/issueToken", region)
			},
			func(region string) string {
				return fmt.Sprintf("https://%s.sts.speech.microsoft.com/sts/v1.0/issueToken", region)
			},
		},
		Synthesis: func(region string) string {
			return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region)
		},
	}
}

// StaticEndpoints points every call at fixed URLs regardless of region, for
// on-prem speech containers or deployments that reach Azure through an
// egress proxy. Token URLs are tried in the order given.
func StaticEndpoints(synthesisURL string, tokenURLs ...string) Endpoints {
	eps := Endpoints{
		Synthesis: func(string) string { return synthesisURL },
	}
	for _, u := range tokenURLs {
		u := u
		eps.Token = append(eps.Token, func(string) string { return u })
	}
	return eps
}
