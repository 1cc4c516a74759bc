// Package security builds the TLS settings of the HTTP client and server
// from configuration. Service addresses may use https; a client
// configuration adds a private CA or a client certificate, and a server
// configuration turns on TLS for the listener.
//
//	http_client:
//	  tls:
//	    ca_file: /etc/schleuben/ca.pem
//	server:
//	  tls:
//	    cert_file: /etc/schleuben/tls.crt
//	    key_file: /etc/schleuben/tls.key
package security
