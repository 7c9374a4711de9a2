/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package wlc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/netinventory/pkg/sources"
)

// apFilter selects the access point fields the inventory needs.
const apFilter = `<filter type="subtree">` +
	`<access-point-oper-data xmlns="http://cisco.com/ns/yang/Cisco-IOS-XE-wireless-access-point-oper">` +
	`<capwap-data><wtp-mac/><ip-addr/>` +
	`<device-detail><static-info><board-data><wtp-serial-num/></board-data><ap-models><model/></ap-models></static-info>` +
	`<wtp-version><sw-ver/></wtp-version></device-detail>` +
	`<ap-location><floor/><location/></ap-location></capwap-data>` +
	`<ap-name-mac-map><wtp-name/><wtp-mac/><eth-mac/></ap-name-mac-map>` +
	`</access-point-oper-data></filter>`

var errRPC = errors.New("rpc-error")

// CapwapData is one access point as seen by the data plane.
type CapwapData struct {
	WtpMAC   string `xml:"wtp-mac"`
	IPAddr   string `xml:"ip-addr"`
	Serial   string `xml:"device-detail>static-info>board-data>wtp-serial-num"`
	Model    string `xml:"device-detail>static-info>ap-models>model"`
	SwVer    swVer  `xml:"device-detail>wtp-version>sw-ver"`
	Location string `xml:"ap-location>location"`
}

type swVer struct {
	Version string `xml:"version"`
	Release string `xml:"release"`
	Maint   string `xml:"maint"`
}

// String renders version.release.maint, or "" when the version is absent.
func (v swVer) String() string {
	if v.Version == "" {
		return ""
	}

	return fmt.Sprintf("%s.%s.%s", v.Version, v.Release, v.Maint)
}

// NameMapEntry maps a radio MAC to the access point's configured name.
type NameMapEntry struct {
	WtpMAC  string `xml:"wtp-mac"`
	WtpName string `xml:"wtp-name"`
	EthMAC  string `xml:"eth-mac"`
}

type rpcError struct {
	Type     string `xml:"error-type"`
	Tag      string `xml:"error-tag"`
	Severity string `xml:"error-severity"`
	Message  string `xml:"error-message"`
}

// Element names match in any namespace.
type rpcReply struct {
	XMLName xml.Name   `xml:"rpc-reply"`
	Errors  []rpcError `xml:"rpc-error"`
	Data    struct {
		Oper struct {
			Capwap  []CapwapData   `xml:"capwap-data"`
			NameMap []NameMapEntry `xml:"ap-name-mac-map"`
		} `xml:"access-point-oper-data"`
	} `xml:"data"`
}

// ParseReply extracts both access point sequences from a get reply.
// access-denied is ErrSourceAuth, other errors are ErrMalformedPayload.
func ParseReply(raw []byte) ([]CapwapData, []NameMapEntry, error) {
	var reply rpcReply
	if err := xml.Unmarshal(raw, &reply); err != nil {
		return nil, nil, sources.Malformed(err)
	}

	for _, e := range reply.Errors {
		if e.Severity != "" && e.Severity != "error" {
			continue
		}

		msg := strings.TrimSpace(e.Message)
		if e.Tag == "access-denied" {
			return nil, nil, fmt.Errorf("%w: %s", sources.ErrSourceAuth, msg)
		}

		return nil, nil, sources.Malformed(fmt.Errorf("%w %s: %s", errRPC, e.Tag, msg))
	}

	return reply.Data.Oper.Capwap, reply.Data.Oper.NameMap, nil
}
