// Package connectors provides implementations of the Connector interface.
// A connector knows how to discover and read aECG documents from one kind
// of study location.
//
// The filesystem connector walks a study directory and reads plain XML
// files and XML members of zip archives. Connectors are created through a
// driven.ConnectorFactory so that services can open any study directory.
package connectors
