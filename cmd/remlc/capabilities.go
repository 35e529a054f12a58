// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/remlc/pkg/capability"
)

var (
	capVerify  string
	capStage   string
	capEffects []string
	capAudit   bool
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List, verify, and audit the capability registry",
	RunE:  runCapabilities,
}

func init() {
	capabilitiesCmd.Flags().StringVar(&capVerify, "verify", "", "Verify the named capability instead of listing")
	capabilitiesCmd.Flags().StringVar(&capStage, "stage", "experimental", "Minimum stage for --verify")
	capabilitiesCmd.Flags().StringSliceVar(&capEffects, "effects", nil, "Required effect tags for --verify")
	capabilitiesCmd.Flags().BoolVar(&capAudit, "audit", false, "Dump the audit log as JSON lines")
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	registry := capability.Global()

	if capVerify != "" {
		stage, err := capability.ParseStage(capStage)
		if err != nil {
			return err
		}
		handle, err := registry.Verify(capVerify, capability.AtLeast(stage), capEffects)
		if err != nil {
			return err
		}
		fmt.Printf("%s: stage=%s provider=%s effects=%v\n",
			handle.Descriptor.ID, handle.Descriptor.Stage,
			handle.Descriptor.Provider.Format(), handle.Descriptor.EffectScope.Slice())
		return nil
	}

	if capAudit {
		encoder := json.NewEncoder(os.Stdout)
		for _, event := range registry.AuditLog() {
			if err := encoder.Encode(event); err != nil {
				return err
			}
		}
		return nil
	}

	for _, descriptor := range registry.DescribeAll() {
		fmt.Printf("%-28s %-12s %-8s %v\n",
			descriptor.ID, descriptor.Stage, descriptor.Provider.Kind, descriptor.EffectScope.Slice())
	}
	return nil
}
